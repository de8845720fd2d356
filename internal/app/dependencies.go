// Package app assembles the API server from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/health"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/ratelimit"
	"github.com/noah-isme/toko-cart/internal/resilience"
)

// Dependencies enumerates the services shared by the HTTP layer.
type Dependencies struct {
	Config        *config.Config
	Logger        zerolog.Logger
	Redis         *redis.Client
	Catalog       *catalog.Client
	Store         *cart.Store
	Limiter       ratelimit.Limiter
	Validator     *validator.Validate
	HTTPMetrics   *obs.HTTPMetrics
	MeterProvider metric.MeterProvider
	Health        *health.Handler
}

// NewDependencies connects to Redis when configured and builds the catalog
// client, cart store, limiter and probes. The returned close function
// releases the Redis client and flushes the meter provider; it is never nil.
func NewDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Validator: validator.New(validator.WithRequiredStructEnabled()),
	}
	// redisotel reports through the global provider unless Prometheus export is on
	deps.MeterProvider = otel.GetMeterProvider()
	var closers []func()
	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Obs.EnablePrometheus {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBucketsMillis), reg)

		mp, err := obs.NewMeterProvider(reg)
		if err != nil {
			return nil, closeFn, err
		}
		deps.MeterProvider = mp
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("shutdown meter provider")
			}
		})
	}

	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, deps.MeterProvider, logger)
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		deps.Redis = client
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
	}

	breaker := resilience.NewBreaker(resilience.BreakerOptions{
		Target:       "catalog",
		MinRequests:  cfg.Catalog.BreakerMinRequests,
		FailureRatio: cfg.Catalog.BreakerFailureRatio,
		OpenFor:      cfg.Catalog.BreakerOpenFor,
		Logger:       &logger,
	})
	deps.Catalog = catalog.NewClient(catalog.ClientConfig{
		BaseURL:     cfg.Catalog.BaseURL,
		Breaker:     breaker,
		Timeout:     cfg.Catalog.Timeout,
		MaxAttempts: cfg.Catalog.RetryMaxAttempts,
		BaseBackoff: cfg.Catalog.RetryBase,
		Jitter:      cfg.Catalog.RetryJitter,
	})

	var lookup catalog.Lookup = deps.Catalog
	if cache := catalog.NewCache(deps.Redis, cfg.Catalog.CacheTTL); cache.Enabled() {
		lookup = catalog.CachedLookup{Next: deps.Catalog, Cache: cache, Logger: logger}
	}
	cartLogger := logger.With().Str("component", "cart").Logger()
	deps.Store = &cart.Store{
		NewCart: func() *cart.Cart {
			return cart.New(cart.WithLookup(lookup), cart.WithLogger(cartLogger))
		},
		TTL: cfg.Cart.IdleTTL,
	}

	if cfg.HTTP.RateLimitMax > 0 {
		if deps.Redis != nil {
			deps.Limiter = ratelimit.RedisLimiter{
				Client: deps.Redis,
				Prefix: "ratelimit:",
				Window: cfg.HTTP.RateLimitWindow,
				Max:    cfg.HTTP.RateLimitMax,
			}
		} else {
			deps.Limiter = ratelimit.NewMemoryLimiter(cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitMax)
		}
	}

	checks := []health.Check{{Name: "catalog", Ping: deps.Catalog.Ping}}
	if deps.Redis != nil {
		client := deps.Redis
		checks = append(checks, health.Check{
			Name:    "redis",
			Timeout: 300 * time.Millisecond,
			Ping: func(ctx context.Context, timeout time.Duration) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return client.Ping(ctx).Err()
			},
		})
	}
	deps.Health = &health.Handler{Checks: checks}

	return deps, closeFn, nil
}

// NewRedis parses url, instruments the client with OpenTelemetry and checks
// connectivity. Connection pool metrics are reported to mp when it is set.
func NewRedis(ctx context.Context, url string, mp metric.MeterProvider, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if mp != nil {
		if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(mp)); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RunSweeper drops idle carts every interval until ctx is done.
func RunSweeper(ctx context.Context, store *cart.Store, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				logger.Info().Int("removed", n).Int("remaining", store.Len()).Msg("cart_sweep")
			}
		}
	}
}
