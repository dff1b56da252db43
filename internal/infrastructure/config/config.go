package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	Store   StoreConfig
	Event   EventConfig
	Payment PaymentConfig
	Metrics MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// StoreConfig holds local document store settings
type StoreConfig struct {
	Path string // sqlite file path, or ":memory:" for ephemeral storage
}

// EventConfig holds event bus settings
type EventConfig struct {
	HistorySize int // capacity of the diagnostic event history ring
}

// PaymentConfig holds payment processing settings
type PaymentConfig struct {
	ProcessingDelay time.Duration // simulated terminal round-trip
}

// MetricsConfig holds the Prometheus exposition endpoint settings
type MetricsConfig struct {
	Enabled bool
	Addr    string // listen address for /metrics
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POS_ prefix (e.g., POS_STORE_PATH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Event: EventConfig{
			HistorySize: v.GetInt("event.history_size"),
		},
		Payment: PaymentConfig{
			ProcessingDelay: v.GetDuration("payment.processing_delay"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Addr:    v.GetString("metrics.addr"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "pos.db"
	}
	if cfg.Event.HistorySize == 0 {
		cfg.Event.HistorySize = 1000
	}
	if cfg.Payment.ProcessingDelay == 0 {
		cfg.Payment.ProcessingDelay = 1500 * time.Millisecond
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Event.HistorySize < 0 {
		return fmt.Errorf("event.history_size cannot be negative")
	}
	if c.Payment.ProcessingDelay < 0 {
		return fmt.Errorf("payment.processing_delay cannot be negative")
	}
	if c.App.Env == "production" {
		if c.Store.Path == ":memory:" {
			return fmt.Errorf("store.path cannot be ':memory:' in production")
		}
		if c.Log.Format != "json" {
			return fmt.Errorf("log.format must be 'json' in production")
		}
	}
	return nil
}
