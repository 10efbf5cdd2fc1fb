package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"core-ledger/internal/service"
)

type Config struct {
	ServerPort string      `mapstructure:"server_port"`
	LogLevel   string      `mapstructure:"log_level"`
	LogFormat  string      `mapstructure:"log_format"`
	Fraud      FraudConfig `mapstructure:",squash"`
}

type FraudConfig struct {
	Threshold      string        `mapstructure:"fraud_threshold"`
	RateWindow     time.Duration `mapstructure:"fraud_rate_window"`
	RateLimit      int           `mapstructure:"fraud_rate_limit"`
	Dedup          string        `mapstructure:"fraud_dedup"`
	ReviewInterval time.Duration `mapstructure:"fraud_review_interval"`
}

func NewDefault() *Config {
	return &Config{
		ServerPort: "8080",
		LogLevel:   "info",
		LogFormat:  "json",
		Fraud: FraudConfig{
			Threshold:  "10000",
			RateWindow: time.Minute,
			RateLimit:  3,
			Dedup:      string(service.DedupNone),
		},
	}
}

// Load reads configuration from an optional .env file, an optional config
// file and the environment, in increasing precedence.
func Load(configFile string) (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v, NewDefault())
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.FraudRules(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server_port", d.ServerPort)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("fraud_threshold", d.Fraud.Threshold)
	v.SetDefault("fraud_rate_window", d.Fraud.RateWindow)
	v.SetDefault("fraud_rate_limit", d.Fraud.RateLimit)
	v.SetDefault("fraud_dedup", d.Fraud.Dedup)
	v.SetDefault("fraud_review_interval", d.Fraud.ReviewInterval)
}

// FraudRules converts the fraud settings into detector rules.
func (c *Config) FraudRules() (service.FraudRules, error) {
	threshold, err := decimal.NewFromString(c.Fraud.Threshold)
	if err != nil {
		return service.FraudRules{}, fmt.Errorf("invalid fraud_threshold %q: %w", c.Fraud.Threshold, err)
	}
	if c.Fraud.RateWindow <= 0 {
		return service.FraudRules{}, fmt.Errorf("fraud_rate_window must be positive, got %s", c.Fraud.RateWindow)
	}
	dedup, err := service.ParseDedupPolicy(c.Fraud.Dedup)
	if err != nil {
		return service.FraudRules{}, err
	}
	return service.FraudRules{
		AmountThreshold: threshold,
		RateWindow:      c.Fraud.RateWindow,
		RateLimit:       c.Fraud.RateLimit,
		Dedup:           dedup,
	}, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
