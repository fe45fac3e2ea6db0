// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Channels      ChannelsConfig      `mapstructure:"channels"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Sources       SourcesConfig       `mapstructure:"sources"`
	Log           LogConfig           `mapstructure:"log"`
}

// ChannelsConfig holds per-channel refresh cadence configuration.
// The intervals are steady-state cold-pull cadences; failed fetches
// back off up to roughly twice these values.
type ChannelsConfig struct {
	PricesInterval       time.Duration `mapstructure:"prices_interval"`
	DefiInterval         time.Duration `mapstructure:"defi_interval"`
	NFTInterval          time.Duration `mapstructure:"nft_interval"`
	GameFiInterval       time.Duration `mapstructure:"gamefi_interval"`
	DAOInterval          time.Duration `mapstructure:"dao_interval"`
	MarketMoversInterval time.Duration `mapstructure:"market_movers_interval"`
	FearGreedInterval    time.Duration `mapstructure:"fear_greed_interval"`
	Watchlist            []string      `mapstructure:"watchlist"`
}

// NotificationsConfig holds notification derivation configuration.
type NotificationsConfig struct {
	// PriceMoveThreshold is the fractional move from baseline that
	// triggers a price alert (0.05 = 5%).
	PriceMoveThreshold float64 `mapstructure:"price_move_threshold"`
	// RingCapacity bounds the in-memory notification buffer.
	RingCapacity int `mapstructure:"ring_capacity"`
	// ArchiveEnabled persists notifications to SQLite beyond the ring.
	ArchiveEnabled bool   `mapstructure:"archive_enabled"`
	ArchivePath    string `mapstructure:"archive_path"`
}

// SourcesConfig holds external data source endpoints.
type SourcesConfig struct {
	MarketAPIURL   string        `mapstructure:"market_api_url"`
	DefiAPIURL     string        `mapstructure:"defi_api_url"`
	SentimentURL   string        `mapstructure:"sentiment_url"`
	BinanceStream  bool          `mapstructure:"binance_stream"`
	MoversFeedURL  string        `mapstructure:"movers_feed_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/marketpulse"
	}
	return filepath.Join(home, ".config", "marketpulse")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// Config file not found, create template and continue with defaults
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// The source dashboard's hand-picked cadences, kept as defaults only.
	v.SetDefault("channels.prices_interval", 30*time.Second)
	v.SetDefault("channels.defi_interval", 5*time.Minute)
	v.SetDefault("channels.nft_interval", 10*time.Minute)
	v.SetDefault("channels.gamefi_interval", 5*time.Minute)
	v.SetDefault("channels.dao_interval", 10*time.Minute)
	v.SetDefault("channels.market_movers_interval", time.Minute)
	v.SetDefault("channels.fear_greed_interval", 10*time.Minute)
	v.SetDefault("channels.watchlist", []string{})

	v.SetDefault("notifications.price_move_threshold", 0.05)
	v.SetDefault("notifications.ring_capacity", 50)
	v.SetDefault("notifications.archive_enabled", false)
	v.SetDefault("notifications.archive_path", filepath.Join(DefaultConfigDir(), "notifications.db"))

	v.SetDefault("sources.market_api_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("sources.defi_api_url", "https://api.llama.fi")
	v.SetDefault("sources.sentiment_url", "https://api.alternative.me/fng/")
	v.SetDefault("sources.binance_stream", true)
	v.SetDefault("sources.movers_feed_url", "")
	v.SetDefault("sources.request_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETPULSE_MARKET_API_URL"); v != "" {
		cfg.Sources.MarketAPIURL = v
	}
	if v := os.Getenv("MARKETPULSE_DEFI_API_URL"); v != "" {
		cfg.Sources.DefiAPIURL = v
	}
	if v := os.Getenv("MARKETPULSE_MOVERS_FEED_URL"); v != "" {
		cfg.Sources.MoversFeedURL = v
	}
	if v := os.Getenv("MARKETPULSE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	intervals := map[string]time.Duration{
		"prices_interval":        c.Channels.PricesInterval,
		"defi_interval":          c.Channels.DefiInterval,
		"nft_interval":           c.Channels.NFTInterval,
		"gamefi_interval":        c.Channels.GameFiInterval,
		"dao_interval":           c.Channels.DAOInterval,
		"market_movers_interval": c.Channels.MarketMoversInterval,
		"fear_greed_interval":    c.Channels.FearGreedInterval,
	}
	for name, d := range intervals {
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %v", name, d)
		}
	}

	if c.Notifications.PriceMoveThreshold <= 0 || c.Notifications.PriceMoveThreshold >= 1 {
		return fmt.Errorf("price_move_threshold must be in (0, 1), got %v", c.Notifications.PriceMoveThreshold)
	}
	if c.Notifications.RingCapacity < 1 {
		return fmt.Errorf("ring_capacity must be positive, got %d", c.Notifications.RingCapacity)
	}
	if c.Notifications.ArchiveEnabled && c.Notifications.ArchivePath == "" {
		return fmt.Errorf("archive_path required when archive_enabled is true")
	}

	return nil
}
