package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/spf13/viper"
)

// AppName names the config directory and the environment prefix
const AppName = "lazysearch"

// Config holds all application configuration
type Config struct {
	Database    models.ConnectionConfig `mapstructure:"database"`
	Storage     StorageConfig           `mapstructure:"storage"`
	Catalog     CatalogConfig           `mapstructure:"catalog"`
	User        UserConfig              `mapstructure:"user"`
	History     HistoryConfig           `mapstructure:"history"`
	Log         LogConfig               `mapstructure:"log"`
	UI          UIConfig                `mapstructure:"ui"`
	Performance PerformanceConfig       `mapstructure:"performance"`
}

type StorageConfig struct {
	// Path of the sqlite database holding profiles and actions
	Path string `mapstructure:"path"`
}

type CatalogConfig struct {
	// Source is "yaml" or "postgres"
	Source string `mapstructure:"source"`
	File   string `mapstructure:"file"`
	// Searchable lists the tables a profile may target when Source is postgres
	Searchable []string `mapstructure:"searchable"`
	CacheTTL   int      `mapstructure:"cache_ttl"`
}

type UserConfig struct {
	// Groups decides which restricted profiles are offered
	Groups []string `mapstructure:"groups"`
}

type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
	SaveFailed bool   `mapstructure:"save_failed"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	// File receives the logs of interactive runs
	File string `mapstructure:"file"`
}

type UIConfig struct {
	Theme        string `mapstructure:"theme"`
	MouseEnabled bool   `mapstructure:"mouse_enabled"`
}

type PerformanceConfig struct {
	ConnectionPoolSize int `mapstructure:"connection_pool_size"`
	// QueryTimeout in milliseconds; zero disables it
	QueryTimeout int `mapstructure:"query_timeout"`
}

// QueryTimeoutDuration returns the query timeout as a duration
func (p PerformanceConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(p.QueryTimeout) * time.Millisecond
}

// CacheTTLDuration returns the catalog cache lifetime
func (c CatalogConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	dir := defaultDir()
	return &Config{
		Database: models.ConnectionConfig{
			Name:     "default",
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
			SSLMode:  "prefer",
			Schema:   "public",
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "profiles.db"),
		},
		Catalog: CatalogConfig{
			Source:   "yaml",
			File:     filepath.Join(dir, "catalog.yaml"),
			CacheTTL: 300,
		},
		History: HistoryConfig{
			Enabled:    true,
			Path:       filepath.Join(dir, "history.db"),
			MaxEntries: 1000,
			SaveFailed: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, AppName+".log"),
		},
		UI: UIConfig{
			Theme:        "default",
			MouseEnabled: true,
		},
		Performance: PerformanceConfig{
			ConnectionPoolSize: 10,
			QueryTimeout:       30000,
		},
	}
}

// Load loads configuration from file and environment. An explicit path
// must exist; otherwise config.yaml is looked up in the user config
// directory, the current directory and ./config, and a missing file is
// not an error. The libpq PG* variables replace the built-in database
// defaults. LAZYSEARCH_* environment variables override everything, with
// dots replaced by underscores (LAZYSEARCH_DATABASE_HOST).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Set config name and type
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config paths in priority order
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, AppName))
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	defaults := GetDefaults()
	defaults.Database = ApplyPGEnvironment(defaults.Database)
	setDefaults(v, defaults)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case "yaml":
		if c.Catalog.File == "" {
			return fmt.Errorf("catalog.file is required when catalog.source is yaml")
		}
	case "postgres":
	default:
		return fmt.Errorf("catalog.source must be yaml or postgres, got %q", c.Catalog.Source)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Performance.ConnectionPoolSize < 1 {
		return fmt.Errorf("performance.connection_pool_size must be positive")
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries cannot be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.schema", d.Database.Schema)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("catalog.source", d.Catalog.Source)
	v.SetDefault("catalog.file", d.Catalog.File)
	v.SetDefault("catalog.searchable", []string{})
	v.SetDefault("catalog.cache_ttl", d.Catalog.CacheTTL)
	v.SetDefault("user.groups", []string{})
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.max_entries", d.History.MaxEntries)
	v.SetDefault("history.save_failed", d.History.SaveFailed)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.mouse_enabled", d.UI.MouseEnabled)
	v.SetDefault("performance.connection_pool_size", d.Performance.ConnectionPoolSize)
	v.SetDefault("performance.query_timeout", d.Performance.QueryTimeout)
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

func defaultDir() string {
	dir, err := GetConfigPath()
	if err != nil {
		return "."
	}
	return dir
}
