package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// OwnerConfig identifies whose task forest is loaded.
type OwnerConfig struct {
	ID string `mapstructure:"id" yaml:"id"`
}

// EngineConfig holds task graph engine settings.
type EngineConfig struct {
	// StorageTimeoutSec bounds each storage call.
	StorageTimeoutSec int `mapstructure:"storage_timeout_sec" yaml:"storage_timeout_sec"`
}

// UnlockConfig controls the periodic date-unlock re-check.
type UnlockConfig struct {
	RecheckIntervalSec int `mapstructure:"recheck_interval_sec" yaml:"recheck_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme         string `mapstructure:"theme" yaml:"theme"`
	ShowCompleted bool   `mapstructure:"show_completed" yaml:"show_completed"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Owner    OwnerConfig    `mapstructure:"owner" yaml:"owner"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Unlock   UnlockConfig   `mapstructure:"unlock" yaml:"unlock"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// StorageTimeout returns the per-call storage timeout.
func (c *AppConfig) StorageTimeout() time.Duration {
	return time.Duration(c.Engine.StorageTimeoutSec) * time.Second
}

// RecheckInterval returns the date-unlock re-check interval.
func (c *AppConfig) RecheckInterval() time.Duration {
	return time.Duration(c.Unlock.RecheckIntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskgraph/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskgraph", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite path,
// located at ~/.local/share/taskgraph/taskgraph.db.
func DefaultDatabasePath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "taskgraph.db"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "taskgraph", "taskgraph.db")
}

const (
	defaultOwnerID            = "local"
	defaultStorageTimeoutSec  = 10
	defaultRecheckIntervalSec = 60
)

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Owner:    OwnerConfig{ID: defaultOwnerID},
		Engine:   EngineConfig{StorageTimeoutSec: defaultStorageTimeoutSec},
		Unlock:   UnlockConfig{RecheckIntervalSec: defaultRecheckIntervalSec},
		Display: DisplayConfig{
			Theme:         "default",
			ShowCompleted: true,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden by TASKGRAPH_* environment variables, e.g.
// TASKGRAPH_DATABASE_PATH. If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskgraph")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("owner.id", defaultOwnerID)
	v.SetDefault("engine.storage_timeout_sec", defaultStorageTimeoutSec)
	v.SetDefault("unlock.recheck_interval_sec", defaultRecheckIntervalSec)
	v.SetDefault("display.theme", "default")
	v.SetDefault("display.show_completed", true)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Engine.StorageTimeoutSec <= 0 {
		cfg.Engine.StorageTimeoutSec = defaultStorageTimeoutSec
	}
	if cfg.Unlock.RecheckIntervalSec <= 0 {
		cfg.Unlock.RecheckIntervalSec = defaultRecheckIntervalSec
	}
	if strings.TrimSpace(cfg.Owner.ID) == "" {
		cfg.Owner.ID = defaultOwnerID
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("owner", cfg.Owner)
	v.Set("engine", cfg.Engine)
	v.Set("unlock", cfg.Unlock)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
