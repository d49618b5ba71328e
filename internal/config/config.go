// Package config loads process configuration once at startup from a
// .env file, OUTREACH_-prefixed environment variables, and an optional
// config.yaml, in increasing order of precedence for the env layer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the explicit settings structure handed to component
// constructors. Nothing reads process-wide state after Load returns.
type Config struct {
	OpenAIKey      string `mapstructure:"openai_api_key"`
	OpenAIModel    string `mapstructure:"openai_model"`
	GeminiKey      string `mapstructure:"gemini_api_key"`
	GeminiModel    string `mapstructure:"gemini_model"`
	AnthropicKey   string `mapstructure:"anthropic_api_key"`
	AnthropicModel string `mapstructure:"anthropic_model"`
	ExtractModel   string `mapstructure:"extract_model"`

	// DatabaseURL selects postgres; SQLitePath selects sqlite; with
	// neither set, runs use the in-memory store and persist nothing.
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`

	MaxURLsPerProvider int           `mapstructure:"max_urls_per_provider"`
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	ScrapeWorkers      int           `mapstructure:"scrape_workers"`

	ScrapeTimeout     time.Duration `mapstructure:"scrape_timeout"`
	ScrapeMaxAttempts int           `mapstructure:"scrape_max_attempts"`
	ScrapeBackoff     time.Duration `mapstructure:"scrape_backoff"`
	ScrapeMaxBackoff  time.Duration `mapstructure:"scrape_max_backoff"`
	MinTextLength     int           `mapstructure:"min_text_length"`

	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
	RateJitter   float64 `mapstructure:"rate_jitter"`
	Fingerprint  string  `mapstructure:"fingerprint"`
	ProxyFile    string  `mapstructure:"proxy_file"`

	AdminAddr   string `mapstructure:"admin_addr"`
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_model", "")
	v.SetDefault("extract_model", "")

	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "")

	v.SetDefault("max_urls_per_provider", 10)
	v.SetDefault("provider_timeout", "90s")
	v.SetDefault("scrape_workers", 4)

	v.SetDefault("scrape_timeout", "30s")
	v.SetDefault("scrape_max_attempts", 3)
	v.SetDefault("scrape_backoff", "2s")
	v.SetDefault("scrape_max_backoff", "30s")
	v.SetDefault("min_text_length", 100)

	v.SetDefault("rate_limit_rps", 0.5)
	v.SetDefault("rate_jitter", 0.3)
	v.SetDefault("fingerprint", "chrome")
	v.SetDefault("proxy_file", "")

	v.SetDefault("admin_addr", ":8080")
	v.SetDefault("metrics_port", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration. A missing .env or config.yaml is fine;
// a malformed config file is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the process logger from the configured level and
// format.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
