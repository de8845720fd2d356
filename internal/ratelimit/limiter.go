// Package ratelimit throttles API callers per client key.
package ratelimit

import (
	"context"
	"time"

	ulule "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts an event for key and decides whether it is within budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter keeps fixed-window counters in process. It serves single
// replicas and local runs where Redis is not configured.
type MemoryLimiter struct {
	lim *ulule.Limiter
}

// NewMemoryLimiter allows max events per window for each key.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	store := memory.NewStoreWithOptions(ulule.StoreOptions{
		Prefix:          "toko_cart",
		CleanUpInterval: window,
	})
	rate := ulule.Rate{Period: window, Limit: int64(max)}
	return &MemoryLimiter{lim: ulule.New(store, rate)}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := m.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
