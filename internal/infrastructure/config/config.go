package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Content  ContentConfig  `mapstructure:"content"`
	Learning LearningConfig `mapstructure:"learning"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the document-store/static server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// StorageConfig holds local persistence configuration.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds remote synchronization configuration.
type SyncConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RemoteURL string        `mapstructure:"remote_url"`
	UserID    string        `mapstructure:"user_id"`
	Interval  time.Duration `mapstructure:"interval"`
}

// ContentConfig locates the vocabulary content files.
type ContentConfig struct {
	Dir      string `mapstructure:"dir"`
	Manifest string `mapstructure:"manifest"`
	Prefix   string `mapstructure:"prefix"`
}

// LearningConfig holds scheduling and session defaults.
type LearningConfig struct {
	CardsPerSession int    `mapstructure:"cards_per_session"`
	Scheduler       string `mapstructure:"scheduler"` // adaptive or simple
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("lernkarten")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("lernkarten")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8484")
	viper.SetDefault("storage.path", "data/lernkarten.db")
	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.remote_url", "")
	viper.SetDefault("sync.interval", 5*time.Minute)
	viper.SetDefault("content.dir", "dataJson")
	viper.SetDefault("content.manifest", "dataJson/manifest.json")
	viper.SetDefault("content.prefix", "german")
	viper.SetDefault("learning.cards_per_session", 20)
	viper.SetDefault("learning.scheduler", "adaptive")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
