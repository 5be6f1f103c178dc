package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Search  SearchConfig  `mapstructure:"search"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

// APIConfig points at the match API.
type APIConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SearchConfig holds pagination settings.
type SearchConfig struct {
	PageSize         int           `mapstructure:"page_size" validate:"min=1,max=200"`
	LoadMoreCooldown time.Duration `mapstructure:"load_more_cooldown" validate:"gte=0"`
	StatisticsLimit  int           `mapstructure:"statistics_limit" validate:"min=1,max=100"`
}

// CacheConfig holds result cache lifetimes.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
}

// StorageConfig selects where durable state lives.
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite badger file memory"`
	Path    string `mapstructure:"path" validate:"required_unless=Backend memory"`
}

// LogConfig holds logging settings. An empty File disables logging.
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Theme       string `mapstructure:"theme" validate:"oneof=dark light"`
	DefaultMode string `mapstructure:"default_mode" validate:"oneof=SEEKER RECRUITER"`
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "skillmatch")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.endpoint", "http://localhost:8080/graphql")
	v.SetDefault("api.timeout", "20s")
	v.SetDefault("search.page_size", 20)
	v.SetDefault("search.load_more_cooldown", "300ms")
	v.SetDefault("search.statistics_limit", 15)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", dataDir())
	v.SetDefault("log.file", filepath.Join(dataDir(), "skillmatch.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("ui.theme", "dark")
	v.SetDefault("ui.default_mode", "SEEKER")
}

// Path returns the config file location. SKILLMATCH_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("SKILLMATCH_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "skillmatch", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix SKILLMATCH_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("SKILLMATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file just means defaults
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.UI.DefaultMode = strings.ToUpper(c.UI.DefaultMode)
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func Validate(c Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.endpoint", cfg.API.Endpoint)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("search.page_size", cfg.Search.PageSize)
	v.Set("search.load_more_cooldown", cfg.Search.LoadMoreCooldown.String())
	v.Set("search.statistics_limit", cfg.Search.StatisticsLimit)
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("cache.cleanup_interval", cfg.Cache.CleanupInterval.String())
	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("log.file", cfg.Log.File)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.Set("log.max_backups", cfg.Log.MaxBackups)
	v.Set("log.max_age_days", cfg.Log.MaxAgeDays)
	v.Set("ui.theme", cfg.UI.Theme)
	v.Set("ui.default_mode", cfg.UI.DefaultMode)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
