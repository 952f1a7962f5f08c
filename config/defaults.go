package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// bindDefaults registers the keys that have a default so environment
// variables can override them without a config file.
func bindDefaults(v *viper.Viper) {
	dataDir := getDataDir()
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.path", filepath.Join(dataDir, "transfers.db"))
	v.SetDefault("database.tx_retry", 3)
	v.SetDefault("database.slow_threshold", "200ms")
	v.SetDefault("sessions.dir", filepath.Join(dataDir, "sessions"))
	v.SetDefault("storage.cache_dir", filepath.Join(dataDir, "cache"))
	v.SetDefault("storage.handle_root", "")
	v.SetDefault("storage.keep_cache", false)

	// zero keeps the engine default, registered for the environment only
	for _, key := range []string{
		"engine.workers",
		"engine.poll_interval",
		"engine.chunk_size",
		"engine.chunk_threshold",
		"engine.resumable_chunk_size",
		"engine.max_file_size",
		"engine.rate_limit",
		"engine.scratch_ttl",
		"engine.reap_interval",
	} {
		v.SetDefault(key, 0)
	}
}

// ApplyDefaults fills the values left empty by the file and the
// environment, and normalizes the log level.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	dataDir := getDataDir()
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(dataDir, "transfers.db")
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = filepath.Join(dataDir, "cache")
	}
	if cfg.Accounts == nil {
		cfg.Accounts = make(map[string]AccountConfig)
	}
	for name, account := range cfg.Accounts {
		account.Type = strings.ToLower(account.Type)
		if account.Options == nil {
			account.Options = make(map[string]any)
		}
		cfg.Accounts[name] = account
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}
