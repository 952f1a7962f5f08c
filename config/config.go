// Package config loads the cloudxfer configuration from a YAML file and
// CLOUDXFER_* environment variables, and builds the account registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/derektruong/cloudxfer"
	"github.com/spf13/viper"
)

const (
	appName   = "cloudxfer"
	envPrefix = "CLOUDXFER"
)

// Config is the complete cloudxfer configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (CLOUDXFER_ENGINE_WORKERS=8)
//  2. Configuration file
//  3. Default values
type Config struct {
	Logging  LoggingConfig            `mapstructure:"logging"`
	Database DatabaseConfig           `mapstructure:"database"`
	Sessions SessionsConfig           `mapstructure:"sessions"`
	Storage  StorageConfig            `mapstructure:"storage"`
	Engine   EngineConfig             `mapstructure:"engine"`
	Accounts map[string]AccountConfig `mapstructure:"accounts" validate:"dive"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR, normalized to uppercase
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	// Format is text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// DatabaseConfig locates the transfer and file-state database.
type DatabaseConfig struct {
	// Path is the sqlite file, ":memory:" for a throwaway database
	Path          string        `mapstructure:"path" validate:"required"`
	TxRetry       int           `mapstructure:"tx_retry" validate:"gte=0"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" validate:"gte=0"`
}

// SessionsConfig locates the resumable session store.
type SessionsConfig struct {
	// Dir is the badger directory, empty keeps sessions in memory
	Dir string `mapstructure:"dir"`
}

// StorageConfig configures the local side of transfers.
type StorageConfig struct {
	// CacheDir receives the sources materialized from opaque handles
	CacheDir string `mapstructure:"cache_dir" validate:"required"`
	// HandleRoot is the directory "file://" handles are resolved against
	HandleRoot string `mapstructure:"handle_root"`
	// KeepCache keeps materialized sources after a successful upload
	KeepCache bool `mapstructure:"keep_cache"`
}

// EngineConfig tunes the coordinator, the dispatcher and the reaper. Zero
// values keep the engine defaults.
type EngineConfig struct {
	Workers            int                   `mapstructure:"workers" validate:"gte=0"`
	PollInterval       time.Duration         `mapstructure:"poll_interval" validate:"gte=0"`
	ChunkSize          int64                 `mapstructure:"chunk_size" validate:"gte=0"`
	ChunkThreshold     int64                 `mapstructure:"chunk_threshold" validate:"gte=0"`
	ResumableChunkSize int64                 `mapstructure:"resumable_chunk_size" validate:"gte=0"`
	MaxFileSize        int64                 `mapstructure:"max_file_size" validate:"gte=0"`
	ExtensionBlacklist []string              `mapstructure:"extension_blacklist"`
	ExtensionWhitelist []string              `mapstructure:"extension_whitelist"`
	RateLimit          float64               `mapstructure:"rate_limit" validate:"gte=0"`
	Retry              cloudxfer.RetryConfig `mapstructure:"retry"`
	Requeue            cloudxfer.RetryConfig `mapstructure:"requeue"`
	ScratchTTL         time.Duration         `mapstructure:"scratch_ttl" validate:"gte=0"`
	ReapInterval       time.Duration         `mapstructure:"reap_interval" validate:"gte=0"`
}

// AccountConfig declares one account. Options are decoded into the client
// of Type, see BuildRegistry.
type AccountConfig struct {
	Type    string         `mapstructure:"type" validate:"required,oneof=webdav s3 local"`
	Options map[string]any `mapstructure:"options"`
}

// Load reads configPath (or the default location when empty), applies the
// environment overrides and the defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// CLOUDXFER_LOGGING_LEVEL=DEBUG overrides logging.level
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper knows about
	bindDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir is $XDG_CONFIG_HOME/cloudxfer, ~/.config/cloudxfer otherwise.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appName)
}

// getDataDir is $XDG_DATA_HOME/cloudxfer, ~/.local/share/cloudxfer otherwise.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", appName)
}

// DefaultConfigPath returns the file Load reads when given no path.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
