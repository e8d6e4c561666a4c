// Package config loads the application configuration from defaults, an
// optional config.toml and BOOKMARKS_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookmarks-browser/internal/logging"

	"github.com/spf13/viper"
)

// DefaultConfigFile is consulted when no --config flag is given.
const DefaultConfigFile = "config.toml"

// Bookmark locates one production bookmark on disk.
type Bookmark struct {
	Server string `mapstructure:"server"`
	Job    string `mapstructure:"job"`
	Root   string `mapstructure:"root"`
}

// Path returns the bookmark's absolute directory.
func (b Bookmark) Path() string {
	return filepath.Join(b.Server, b.Job, b.Root)
}

// Thumbnails tunes the thumbnail generator.
type Thumbnails struct {
	Size             int   `mapstructure:"size"`
	SizeCeilingMB    int64 `mapstructure:"size_ceiling_mb"`
	DecodeTimeoutSec int   `mapstructure:"decode_timeout_sec"`
}

// Workers sizes the enrichment pools. Zero selects a CPU-derived count.
type Workers struct {
	Info      int `mapstructure:"info"`
	Thumbnail int `mapstructure:"thumbnail"`
}

// Config is the full application configuration.
type Config struct {
	Bookmark    Bookmark   `mapstructure:"bookmark"`
	TaskFolder  string     `mapstructure:"task_folder"`
	SettingsDir string     `mapstructure:"settings_dir"`
	CacheDir    string     `mapstructure:"cache_dir"`
	MetricsAddr string     `mapstructure:"metrics_addr"`
	LogLevel    string     `mapstructure:"log_level"`
	Excludes    []string   `mapstructure:"excludes"`
	Thumbnails  Thumbnails `mapstructure:"thumbnails"`
	Workers     Workers    `mapstructure:"workers"`
}

// Load reads the configuration. A missing config file is not an error; the
// defaults and environment carry a usable setup on their own.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKMARKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			logging.Debug("No config file at %s, using defaults and environment", path)
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.Debug("No config file found, using defaults and environment")
		} else {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		logging.Debug("Loaded config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.Bookmark.Path(), ".bookmarks", "thumbnails")
	}
	if cfg.SettingsDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.SettingsDir = filepath.Join(base, "bookmarks-browser")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("task_folder", "renders")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("thumbnails.size", 512)
	v.SetDefault("thumbnails.size_ceiling_mb", 500)
	v.SetDefault("thumbnails.decode_timeout_sec", 30)
	v.SetDefault("workers.info", 0)
	v.SetDefault("workers.thumbnail", 0)
}
