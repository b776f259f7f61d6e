package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the config file from the embedded template when missing, then prepares
// the configured cache backend: the SQLite database is created and migrated, the Redis
// server is pinged, and the JSON file is left for the first sync to create.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", path)
	} else {
		r.logger.Info("using existing config", "path", path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config

	switch config.Cache.Backend {
	case shared.CacheBackendSQLite, shared.CacheBackendRedis:
		r.logger.Info("initializing cache backend", "backend", config.Cache.Backend)
		store, err := r.openStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize %s cache: %w", config.Cache.Backend, err)
		}
		if err := store.Close(); err != nil {
			return err
		}
	}
	r.writePlain("✓ Cache backend: %s\n", config.Cache.Backend)

	if _, err := services.CredentialsFromEnv(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set %s and %s in the environment or .env\n", services.EnvClientID, services.EnvClientSecret)
		r.writePlain("2. Run 'radiosync auth' and store the printed %s\n", services.EnvRefreshToken)
		r.writePlain("3. Add stations under [stations.<name>] in %s\n", path)
		return nil
	}
	return r.writePlainln("Credentials found. Run 'radiosync sync --dry-run' to preview.")
}
