package cart

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the kind shared by every validation failure. Validation
// happens before the catalog is consulted.
var ErrInvalidInput = errors.New("invalid input")

// ErrProductNotFound is the kind behind every AddError.
var ErrProductNotFound = errors.New("product not found")

var (
	// ErrInvalidProductID rejects an empty product id.
	ErrInvalidProductID = &InputError{Reason: "Product ID must be a non-empty string"}
	// ErrInvalidQuantity rejects zero, negative and fractional quantities.
	ErrInvalidQuantity = &InputError{Reason: "Quantity must be a positive integer"}
)

// InputError describes a malformed argument to AddProduct.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// Is makes every InputError match ErrInvalidInput.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// AddError reports that a product could not be added because the catalog
// lookup failed. The message never depends on the underlying cause.
type AddError struct {
	ProductID string
	// Cause is the original lookup failure, kept for logs.
	Cause error
}

func (e *AddError) Error() string {
	return fmt.Sprintf("Failed to add product: Product not found: %s", e.ProductID)
}

// Unwrap exposes the normalised not-found kind, not the raw cause.
func (e *AddError) Unwrap() error { return ErrProductNotFound }

// IsInvalidInput reports whether err is a validation failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
