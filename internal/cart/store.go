package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-cart/internal/obs"
)

// ErrCartNotFound indicates the requested cart id is unknown or expired.
var ErrCartNotFound = errors.New("cart not found")

// Store keeps carts in memory keyed by a random id. Adds to the same cart are
// serialised; adds to different carts run in parallel.
type Store struct {
	// NewCart builds carts for Create. Defaults to New().
	NewCart func() *Cart
	// TTL is the idle time after which Sweep drops a cart.
	TTL time.Duration
	Now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu       sync.Mutex
	cart     *Cart
	lastSeen time.Time
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create registers an empty cart and returns its id.
func (s *Store) Create() (string, Snapshot) {
	c := s.newCart()
	id := uuid.NewString()

	s.mu.Lock()
	if s.entries == nil {
		s.entries = make(map[string]*entry)
	}
	s.entries[id] = &entry{cart: c, lastSeen: s.now()}
	n := len(s.entries)
	s.mu.Unlock()

	obs.SetCartsActive(n)
	return id, c.State()
}

// Get returns the current snapshot of cart id.
func (s *Store) Get(id string) (Snapshot, error) {
	e, err := s.lockEntry(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()
	e.lastSeen = s.now()
	return e.cart.State(), nil
}

// Add forwards to Cart.AddProduct while holding the cart's lock. The lock is
// held across the catalog lookup so concurrent adds cannot lose updates.
func (s *Store) Add(ctx context.Context, id, productID string, quantity int) (Snapshot, error) {
	e, err := s.lockEntry(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()
	e.lastSeen = s.now()
	return e.cart.AddProduct(ctx, productID, quantity)
}

// Delete drops cart id. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()
	obs.SetCartsActive(n)
}

// Sweep removes carts idle for longer than the TTL and returns how many were dropped.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl())
	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		// a held lock means an add is in flight
		if !e.mu.TryLock() {
			continue
		}
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()
	obs.SetCartsActive(n)
	return removed
}

// Len returns the number of carts held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrCartNotFound
	}
	return e, nil
}

// lockEntry returns the entry for id with its lock held. An entry swept or
// deleted while the caller waited for the lock reports ErrCartNotFound.
func (s *Store) lockEntry(id string) (*entry, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	s.mu.RLock()
	current := s.entries[id]
	s.mu.RUnlock()
	if current != e {
		e.mu.Unlock()
		return nil, ErrCartNotFound
	}
	return e, nil
}

func (s *Store) newCart() *Cart {
	if s.NewCart != nil {
		return s.NewCart()
	}
	return New()
}
