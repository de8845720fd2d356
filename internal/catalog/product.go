// Package catalog talks to the remote product catalog that prices cart items.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is where the catalog service listens in local setups.
const DefaultBaseURL = "http://localhost:3001"

// ErrNotFound indicates the catalog has no product for the requested id.
var ErrNotFound = errors.New("catalog: product not found")

// Product is a catalog record as served by GET /products/{id}.
type Product struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// Lookup resolves a single product by id.
type Lookup interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Lister returns every product the catalog offers.
type Lister interface {
	Products(ctx context.Context) ([]Product, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, id string) (Product, error)

// Product calls f.
func (f LookupFunc) Product(ctx context.Context, id string) (Product, error) {
	return f(ctx, id)
}
