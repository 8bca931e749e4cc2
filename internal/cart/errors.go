package cart

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
)

var (
	// ErrPending is returned while another change for the same product is in
	// flight. Callers treat it like a disabled control.
	ErrPending         = errors.New("product has a change in flight")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrStale means the server accepted a change but the refresh after it
	// failed, so local lines may not show it.
	ErrStale = errors.New("cart changed but could not be refreshed")
)

type Op string

const (
	OpLoad   Op = "load"
	OpAdjust Op = "adjust"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
	OpAdd    Op = "add"
)

// OpError records which cart operation failed against the API.
type OpError struct {
	Op        Op
	ProductID int64
	Err       error
}

func (e *OpError) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf("cart %s product %d: %v", e.Op, e.ProductID, e.Err)
	}
	return fmt.Sprintf("cart %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

var opMessages = map[Op]string{
	OpLoad:   "Failed to load cart. Please try again.",
	OpAdjust: "Failed to update quantity. Please try again.",
	OpRemove: "Failed to remove item. Please try again.",
	OpClear:  "Failed to clear cart. Please try again.",
	OpAdd:    "Failed to add item to cart. Please try again.",
}

// Message turns a cart error into the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrLoginRequired), errors.Is(err, api.ErrUnauthorized):
		return "Please login to continue"
	case errors.Is(err, ErrPending):
		return "This item is still updating. Please wait."
	case errors.Is(err, ErrNotInCart):
		return "That product is not in your cart"
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be at least 1"
	case errors.Is(err, ErrStale):
		return "Item added, but your cart could not be refreshed. Please try again."
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		if msg, ok := opMessages[opErr.Op]; ok {
			return msg
		}
	}
	return "Something went wrong. Please try again."
}
