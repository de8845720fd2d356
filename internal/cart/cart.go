// Package cart aggregates catalog products into priced line items.
package cart

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/pricing"
)

// LineItem aggregates every quantity added for one product id.
type LineItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Snapshot is a read-only view of a cart with computed totals.
type Snapshot struct {
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Cart holds line items keyed by product id, iterated in the order each id
// was first added.
//
// A Cart is not safe for concurrent use: two AddProduct calls racing on the
// same Cart can lose an update. Callers sharing a Cart across goroutines must
// serialise access themselves (see Store).
type Cart struct {
	lookup catalog.Lookup
	logger zerolog.Logger
	order  []string
	items  map[string]LineItem
}

// Option configures a Cart.
type Option func(*Cart)

// WithBaseURL points the cart at a catalog service rooted at baseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Cart) {
		c.lookup = catalog.NewClient(catalog.ClientConfig{BaseURL: baseURL})
	}
}

// WithLookup injects the product lookup used by AddProduct.
func WithLookup(l catalog.Lookup) Option {
	return func(c *Cart) {
		if l != nil {
			c.lookup = l
		}
	}
}

// WithLogger sets the logger used for failed lookups.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cart) {
		c.logger = logger
	}
}

// New returns an empty cart. Without options it looks products up at
// catalog.DefaultBaseURL.
func New(opts ...Option) *Cart {
	c := &Cart{
		logger: zerolog.Nop(),
		items:  make(map[string]LineItem),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lookup == nil {
		c.lookup = catalog.NewClient(catalog.ClientConfig{BaseURL: catalog.DefaultBaseURL})
	}
	return c
}

// AddProduct looks productID up and adds quantity units of it to the cart.
// Repeated ids accumulate quantity and take the latest title and price.
// On any error the cart is left unchanged.
func (c *Cart) AddProduct(ctx context.Context, productID string, quantity int) (Snapshot, error) {
	if productID == "" {
		obs.ObserveCartAdd("invalid_input")
		return Snapshot{}, ErrInvalidProductID
	}
	if quantity <= 0 {
		obs.ObserveCartAdd("invalid_input")
		return Snapshot{}, ErrInvalidQuantity
	}
	if item, ok := c.items[productID]; ok && item.Quantity > math.MaxInt-quantity {
		obs.ObserveCartAdd("invalid_input")
		return Snapshot{}, ErrInvalidQuantity
	}

	product, err := c.lookup.Product(ctx, productID)
	if err != nil {
		obs.ObserveCartAdd("add_failed")
		c.logger.Warn().Err(err).Str("product_id", productID).Msg("cart_add_lookup_failed")
		return Snapshot{}, &AddError{ProductID: productID, Cause: err}
	}

	item, exists := c.items[productID]
	if !exists {
		c.order = append(c.order, productID)
	}
	c.items[productID] = LineItem{
		ID:       productID,
		Title:    product.Title,
		Price:    product.Price,
		Quantity: item.Quantity + quantity,
	}
	obs.ObserveCartAdd("ok")
	return c.State(), nil
}

// State recomputes the snapshot from the current line items.
func (c *Cart) State() Snapshot {
	items := make([]LineItem, 0, len(c.order))
	lines := make([]pricing.Line, 0, len(c.order))
	for _, id := range c.order {
		it := c.items[id]
		items = append(items, it)
		lines = append(lines, pricing.Line{UnitPrice: it.Price, Qty: it.Quantity})
	}
	summary := pricing.Compute(lines)
	return Snapshot{
		Items:    items,
		Subtotal: summary.Subtotal,
		Tax:      summary.Tax,
		Total:    summary.Total,
	}
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.order)
}
