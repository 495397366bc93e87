package cart

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrEmptyCart       = errors.New("cart is empty")
	// ErrConflict is returned once the retry budget for optimistic version
	// conflicts is exhausted.
	ErrConflict = errors.New("cart modified concurrently, giving up")
)

// InsufficientStockError reports an admission-check failure with enough
// detail for the caller to act on ("only N left").
type InsufficientStockError struct {
	ProductID uint
	Requested uint
	Available uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, only %d left",
		e.ProductID, e.Requested, e.Available)
}
