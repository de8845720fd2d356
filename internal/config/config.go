// Package config reads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/toko-cart/internal/catalog"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	Catalog CatalogConfig
	Cart    CartConfig
	HTTP    HTTPConfig
	Obs     ObsConfig

	// RedisURL enables the product cache and the shared rate limiter when set.
	RedisURL string
}

// CatalogConfig controls the upstream product catalog client.
type CatalogConfig struct {
	BaseURL             string
	Timeout             time.Duration
	RetryMaxAttempts    int
	RetryBase           time.Duration
	RetryJitter         float64
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	// CacheTTL of zero disables the Redis product cache.
	CacheTTL time.Duration
}

// CartConfig controls the in-memory cart store.
type CartConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// HTTPConfig groups the edge protections of the API server.
type HTTPConfig struct {
	CORSAllowedOrigins []string
	RateLimitMax       int
	RateLimitWindow    time.Duration
	BodyLimitBytes     int64
}

// ObsConfig groups logging, metrics and tracing switches.
type ObsConfig struct {
	LogFormat            string
	LogLevel             string
	MetricsNamespace     string
	EnablePrometheus     bool
	EnableTracing        bool
	OTLPEndpoint         string
	TracingSamplingRatio float64
	MetricsBucketsMillis string
}

// Option adjusts the defaults Load falls back to.
type Option func(*loadDefaults)

type loadDefaults struct {
	logLevel string
}

// WithDefaultLogLevel replaces the "info" fallback used when OBS_LOG_LEVEL is unset.
func WithDefaultLogLevel(level string) Option {
	return func(d *loadDefaults) {
		d.logLevel = level
	}
}

// Load reads configuration from environment variables and optional .env files.
func Load(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	defaults := loadDefaults{logLevel: "info"}
	for _, opt := range opts {
		opt(&defaults)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:   valueOrDefault(k.String("APP_ENV"), "development"),
		Port:     valueOrDefault(k.String("PORT"), "8080"),
		RedisURL: strings.TrimSpace(k.String("REDIS_URL")),
		Catalog: CatalogConfig{
			BaseURL:             strings.TrimRight(valueOrDefault(k.String("CATALOG_BASE_URL"), catalog.DefaultBaseURL), "/"),
			Timeout:             parseDuration(k.String("CATALOG_TIMEOUT"), "5s"),
			RetryMaxAttempts:    parseInt(k.String("CATALOG_RETRY_MAX_ATTEMPTS"), 1),
			RetryBase:           parseDuration(k.String("CATALOG_RETRY_BASE"), "100ms"),
			RetryJitter:         parseFloat(k.String("CATALOG_RETRY_JITTER"), 0.2),
			BreakerMinRequests:  parseInt(k.String("CATALOG_BREAKER_MIN_REQUESTS"), 5),
			BreakerFailureRatio: parseFloat(k.String("CATALOG_BREAKER_FAILURE_RATIO"), 0.5),
			BreakerOpenFor:      parseDuration(k.String("CATALOG_BREAKER_OPEN_FOR"), "30s"),
			CacheTTL:            parseDuration(k.String("CATALOG_CACHE_TTL"), "0s"),
		},
		Cart: CartConfig{
			IdleTTL:       parseDuration(k.String("CART_IDLE_TTL"), "24h"),
			SweepInterval: parseDuration(k.String("CART_SWEEP_INTERVAL"), "1m"),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
			RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 120),
			RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
			BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
		},
		Obs: ObsConfig{
			LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), defaults.logLevel),
			MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_cart"),
			EnablePrometheus:     parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:        parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:         strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
			MetricsBucketsMillis: strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if u, err := url.Parse(c.Catalog.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CATALOG_BASE_URL must be an absolute URL, got %q", c.Catalog.BaseURL))
	}
	if c.Catalog.RetryMaxAttempts < 1 {
		errs = append(errs, errors.New("CATALOG_RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Catalog.BreakerFailureRatio <= 0 || c.Catalog.BreakerFailureRatio > 1 {
		errs = append(errs, errors.New("CATALOG_BREAKER_FAILURE_RATIO must be in (0, 1]"))
	}
	if c.Catalog.RetryJitter < 0 || c.Catalog.RetryJitter > 1 {
		errs = append(errs, errors.New("CATALOG_RETRY_JITTER must be in [0, 1]"))
	}
	if c.Obs.TracingSamplingRatio < 0 || c.Obs.TracingSamplingRatio > 1 {
		errs = append(errs, errors.New("OBS_TRACING_SAMPLING_RATIO must be in [0, 1]"))
	}
	if c.HTTP.RateLimitMax < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must not be negative"))
	}
	if c.HTTP.BodyLimitBytes <= 0 {
		errs = append(errs, errors.New("BODY_LIMIT_BYTES must be positive"))
	}
	if c.Catalog.CacheTTL > 0 && c.RedisURL == "" {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL requires REDIS_URL"))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests overrides environment variables for the duration of a Load
// call. An empty value unsets the variable.
func LoadForTests(env map[string]string, opts ...Option) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load(opts...)
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
