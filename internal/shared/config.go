package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Cache backends accepted by [CacheConfig.Backend].
const (
	CacheBackendJSON   = "json"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig            `toml:"spotify"`
	Cache    CacheConfig              `toml:"cache"`
	Sync     SyncConfig               `toml:"sync"`
	Server   ServerConfig             `toml:"server"`
	Stations map[string]StationConfig `toml:"stations"`
}

// SpotifyConfig contains the remote endpoints and client-side throttling settings.
//
// Credentials are never read from the file, see [LoadEnv].
type SpotifyConfig struct {
	APIURL            string        `toml:"api_url"`
	AccountsURL       string        `toml:"accounts_url"`
	RedirectURI       string        `toml:"redirect_uri"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Timeout           time.Duration `toml:"timeout"`
}

// TokenURL is the refresh and code exchange endpoint.
func (c SpotifyConfig) TokenURL() string {
	return strings.TrimRight(c.AccountsURL, "/") + "/api/token"
}

// AuthURL is the authorization endpoint used by the auth command.
func (c SpotifyConfig) AuthURL() string {
	return strings.TrimRight(c.AccountsURL, "/") + "/authorize"
}

// CacheConfig selects and tunes the track search cache.
type CacheConfig struct {
	Backend      string        `toml:"backend"`
	Path         string        `toml:"path"`
	RedisURL     string        `toml:"redis_url"`
	TTL          time.Duration `toml:"ttl"`
	StrictExpiry bool          `toml:"strict_expiry"`
}

// SyncConfig controls the scrape window and reconciliation behavior.
type SyncConfig struct {
	Days         int    `toml:"days"`
	SkipCurrent  bool   `toml:"skip_current"`
	MaxTracks    int    `toml:"max_tracks"`
	Concurrency  int    `toml:"concurrency"`
	PageCacheDir string `toml:"page_cache_dir"`
}

// ServerConfig contains the OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StationConfig filters which shows of a station are processed.
//
// An empty Shows list admits every show; any title matching one of Ignores is rejected.
type StationConfig struct {
	Shows   []string `toml:"shows"`
	Ignores []string `toml:"ignores"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Stations = nil
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks value ranges and the cache backend selection.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendJSON, CacheBackendSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("%w: cache.path is required for the %s backend", ErrInvalidConfig, c.Cache.Backend)
		}
	case CacheBackendRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("%w: cache.redis_url is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidConfig)
	}
	if c.Sync.Days < 1 {
		return fmt.Errorf("%w: sync.days must be at least 1", ErrInvalidConfig)
	}
	if c.Sync.MaxTracks < 1 {
		return fmt.Errorf("%w: sync.max_tracks must be at least 1", ErrInvalidConfig)
	}
	if c.Spotify.APIURL == "" || c.Spotify.AccountsURL == "" {
		return fmt.Errorf("%w: spotify.api_url and spotify.accounts_url are required", ErrInvalidConfig)
	}
	return nil
}

// StationNames returns the configured station names in sorted order.
func (c *Config) StationNames() []string {
	names := make([]string, 0, len(c.Stations))
	for name := range c.Stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Missing files are ignored; variables already set are not overridden.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	var existing []string
	for _, name := range filenames {
		if _, err := os.Stat(name); err == nil {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("%w: failed to load env file: %v", ErrInvalidConfig, err)
	}
	return nil
}
