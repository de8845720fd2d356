package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/obs"
)

const productKeyPrefix = "catalog:product:"

// Cache stores catalog products in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl
// yields a cache that never stores anything.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether the cache has a backing store.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetProduct loads a cached product. It reports whether the key existed.
func (c *Cache) GetProduct(ctx context.Context, id string) (Product, bool, error) {
	if !c.Enabled() || id == "" {
		return Product{}, false, nil
	}
	data, err := c.client.Get(ctx, productKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Product{}, false, nil
		}
		return Product{}, false, err
	}
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

// SetProduct stores p under id with the configured TTL.
func (c *Cache) SetProduct(ctx context.Context, id string, p Product) error {
	if !c.Enabled() || id == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKeyPrefix+id, data, c.ttl).Err()
}

// CachedLookup serves products from Cache and falls back to Next on a miss.
// Cache failures are logged and never fail the lookup.
type CachedLookup struct {
	Next   Lookup
	Cache  *Cache
	Logger zerolog.Logger
}

// Product implements Lookup.
func (l CachedLookup) Product(ctx context.Context, id string) (Product, error) {
	if l.Next == nil {
		return Product{}, errors.New("catalog: cached lookup has no upstream")
	}
	p, ok, err := l.Cache.GetProduct(ctx, id)
	switch {
	case err != nil:
		obs.ObserveCatalogCache("error")
		l.logger(ctx).Warn().Err(err).Str("product_id", id).Msg("catalog_cache_get")
	case ok:
		obs.ObserveCatalogCache("hit")
		return p, nil
	default:
		obs.ObserveCatalogCache("miss")
	}

	p, err = l.Next.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := l.Cache.SetProduct(ctx, id, p); err != nil {
		l.logger(ctx).Warn().Err(err).Str("product_id", id).Msg("catalog_cache_set")
	}
	return p, nil
}

func (l CachedLookup) logger(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger
	}
	return &l.Logger
}
