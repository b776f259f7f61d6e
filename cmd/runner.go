package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/cache"
	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/repositories"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/spinitron"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	source      tasks.ShowSource
	now         func() time.Time
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Source replaces the Spinitron client built from the config.
	Source tasks.ShowSource
	Now    func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		source:      opts.Source,
		now:         opts.Now,
		openBrowser: shared.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, playlistsCommand, cacheCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Before loads the configuration named by --config and applies --log-level.
//
// A missing file leaves the defaults in place so that setup can create it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.SetLogLevel(r.logger, cmd.String("log-level")); err != nil {
		return ctx, err
	}

	path := cmd.String("config")
	r.configPath = path
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// spotifyClient builds the token manager and API client from the environment credentials.
func (r *Runner) spotifyClient() (*services.TokenManager, *services.SpotifyService, error) {
	creds, err := services.CredentialsFromEnv()
	if err != nil {
		return nil, nil, err
	}

	httpClient := r.httpClient
	if timeout := r.config.Spotify.Timeout; timeout > 0 && httpClient.Timeout == 0 {
		c := *httpClient
		c.Timeout = timeout
		httpClient = &c
	}

	tokens := services.NewTokenManager(creds, r.config.Spotify, httpClient, r.logger)
	return tokens, services.NewSpotifyService(r.config.Spotify, tokens, httpClient, r.logger), nil
}

// openStore opens the configured track cache backend.
func (r *Runner) openStore(ctx context.Context) (cache.Store, error) {
	cfg := r.config.Cache
	switch cfg.Backend {
	case shared.CacheBackendJSON:
		return cache.NewFileStore(cfg.Path), nil
	case shared.CacheBackendSQLite:
		return repositories.OpenTrackCacheStore(cfg.Path)
	case shared.CacheBackendRedis:
		return cache.OpenRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// openCache opens the configured store as a [cache.Cache].
func (r *Runner) openCache(ctx context.Context) (*cache.Cache, error) {
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(ctx, store,
		cache.WithTTL(r.config.Cache.TTL),
		cache.WithStrictExpiry(r.config.Cache.StrictExpiry),
		cache.WithClock(r.now),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

// showSource returns the injected source or a Spinitron client caching pages under the
// configured directory.
func (r *Runner) showSource() tasks.ShowSource {
	if r.source != nil {
		return r.source
	}
	var opts []spinitron.Option
	if dir := r.config.Sync.PageCacheDir; dir != "" {
		opts = append(opts, spinitron.WithCacheDir(dir))
	}
	return spinitron.NewClient(r.httpClient, r.logger, opts...)
}

// stationFilters compiles the per-station show filters in station name order.
func (r *Runner) stationFilters() ([]tasks.StationFilter, error) {
	names := r.config.StationNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no stations configured", shared.ErrInvalidConfig)
	}

	stations := make([]tasks.StationFilter, 0, len(names))
	for _, name := range names {
		filter, err := grouping.NewShowFilter(r.config.Stations[name])
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", name, err)
		}
		stations = append(stations, tasks.StationFilter{Name: name, Filter: filter})
	}
	return stations, nil
}

// ownershipRules enables the legacy name prefix check for every configured station.
func (r *Runner) ownershipRules() tasks.OwnershipRules {
	return tasks.OwnershipRules{Stations: r.config.StationNames()}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
