package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/config"
	"github.com/noah-isme/toko-cart/internal/console"
	"github.com/noah-isme/toko-cart/internal/obs"
)

func main() {
	// stdout is the transcript; diagnostics go to stderr and stay quiet by default
	cfg, err := config.Load(config.WithDefaultLogLevel("error"))
	if err != nil {
		fatal := obs.NewLoggerTo(os.Stderr, "console", "error")
		fatal.Fatal().Err(err).Msg("load config")
	}
	logger := obs.NewLoggerTo(os.Stderr, "console", cfg.Obs.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL:     cfg.Catalog.BaseURL,
		Timeout:     cfg.Catalog.Timeout,
		MaxAttempts: cfg.Catalog.RetryMaxAttempts,
		BaseBackoff: cfg.Catalog.RetryBase,
		Jitter:      cfg.Catalog.RetryJitter,
	})
	logger.Debug().Str("catalog", client.BaseURL()).Msg("demo starting")

	c := cart.New(cart.WithLookup(client), cart.WithLogger(logger))
	streams := console.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	if err := console.Demo(ctx, streams, c, client, console.DemoScript); err != nil {
		stop()
		os.Exit(1)
	}
}
