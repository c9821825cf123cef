package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Mapstructure tags are used to map environment variables and config file keys.
type Config struct {
	// Server
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"` // "json" or "console"

	// Hosted providers. Keys are only checked when a request is dispatched.
	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
	GeminiKey     string `mapstructure:"GEMINI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"` // empty = provider default
	GeminiBaseURL string `mapstructure:"GEMINI_BASE_URL"`

	// Self-hosted servers, "name=url=protocol,..."; empty = built-in list
	LocalEndpoints string `mapstructure:"LOCAL_ENDPOINTS"`

	ProbeTimeout      time.Duration `mapstructure:"PROBE_TIMEOUT"`
	GenerationTimeout time.Duration `mapstructure:"GENERATION_TIMEOUT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ComparisonTimeout time.Duration `mapstructure:"COMPARISON_TIMEOUT"`

	// Persistence
	DatabaseURL   string        `mapstructure:"DATABASE_URL"` // empty = in-memory store
	RunMigrations bool          `mapstructure:"RUN_MIGRATIONS"`
	RedisURL      string        `mapstructure:"REDIS_URL"` // empty = in-process LRU
	CacheSize     int           `mapstructure:"CACHE_SIZE"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"` // empty = events are dropped

	// Artifact export
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	ExportDir      string `mapstructure:"EXPORT_DIR"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":               "8001",
	"GIN_MODE":           "release",
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
	"OPENAI_API_KEY":     "",
	"GEMINI_API_KEY":     "",
	"OPENAI_BASE_URL":    "",
	"GEMINI_BASE_URL":    "",
	"LOCAL_ENDPOINTS":    "",
	"PROBE_TIMEOUT":      5 * time.Second,
	"GENERATION_TIMEOUT": 120 * time.Second,
	"REQUEST_TIMEOUT":    150 * time.Second,
	"COMPARISON_TIMEOUT": 180 * time.Second,
	"DATABASE_URL":       "",
	"RUN_MIGRATIONS":     true,
	"REDIS_URL":          "",
	"CACHE_SIZE":         256,
	"CACHE_TTL":          10 * time.Minute,
	"NATS_URL":           "",
	"MINIO_ENDPOINT":     "",
	"MINIO_ACCESS_KEY":   "",
	"MINIO_SECRET_KEY":   "",
	"MINIO_BUCKET":       "webgen-projects",
	"MINIO_USE_SSL":      false,
	"EXPORT_DIR":         "",
	"RATE_LIMIT_RPS":     1.0,
	"RATE_LIMIT_BURST":   5,
}

// LoadConfig reads config.yaml from path when present, then the environment.
// The boolean reports whether a config file was used.
func LoadConfig(path string) (Config, bool, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// every key needs a default so AutomaticEnv can see it during Unmarshal
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	fileUsed := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, false, fmt.Errorf("error reading config file: %w", err)
		}
		fileUsed = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fileUsed, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fileUsed, err
	}
	return cfg, fileUsed, nil
}

// Validate checks the timeout layering and numeric limits.
func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"PROBE_TIMEOUT":      c.ProbeTimeout,
		"GENERATION_TIMEOUT": c.GenerationTimeout,
		"REQUEST_TIMEOUT":    c.RequestTimeout,
		"COMPARISON_TIMEOUT": c.ComparisonTimeout,
		"CACHE_TTL":          c.CacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.GenerationTimeout >= c.RequestTimeout {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed GENERATION_TIMEOUT (%s)", c.RequestTimeout, c.GenerationTimeout))
	}
	if c.GenerationTimeout >= c.ComparisonTimeout {
		errs = append(errs, fmt.Errorf("COMPARISON_TIMEOUT (%s) must exceed GENERATION_TIMEOUT (%s)", c.ComparisonTimeout, c.GenerationTimeout))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be at least 1, got %d", c.CacheSize))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %g", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

func (c Config) MinioEnabled() bool { return c.MinioEndpoint != "" }
