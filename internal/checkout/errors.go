package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrIllegalTransition  = errors.New("illegal transition of checkout status")
)

// ScriptLoadError means the gateway script could not be fetched. Retrying is
// safe; nothing was charged.
type ScriptLoadError struct {
	Err error
}

func (e *ScriptLoadError) Error() string { return fmt.Sprintf("load gateway script: %v", e.Err) }
func (e *ScriptLoadError) Unwrap() error { return e.Err }

// GatewayError carries the gateway's own failure description.
type GatewayError struct {
	Description string
}

func (e *GatewayError) Error() string { return "payment failed: " + e.Description }

// PartialFailureError means the payment went through but the order was not
// recorded. It must reach a human; it is never retried.
type PartialFailureError struct {
	Confirmation domain.PaymentConfirmation
	Err          error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("payment %s succeeded but order placement failed: %v", e.Confirmation.PaymentID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

const (
	msgLoginRequired  = "Please login to continue"
	msgEmptyCart      = "Your cart is empty"
	msgInProgress     = "Checkout is already in progress"
	msgScriptLoad     = "Razorpay SDK failed to load. Please try again."
	msgPartialFailure = "Payment succeeded but order could not be saved. Please contact support."
)

// Message turns a checkout error into the text shown to the user. Partial
// failures always win over whatever caused them.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var partial *PartialFailureError
	if errors.As(err, &partial) {
		return msgPartialFailure
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return "❌ Payment failed: " + gwErr.Description
	}
	var scriptErr *ScriptLoadError
	if errors.As(err, &scriptErr) {
		return msgScriptLoad
	}

	switch {
	case errors.Is(err, auth.ErrLoginRequired), errors.Is(err, api.ErrUnauthorized):
		return msgLoginRequired
	case errors.Is(err, ErrEmptyCart):
		return msgEmptyCart
	case errors.Is(err, ErrCheckoutInProgress):
		return msgInProgress
	}

	reason := api.ServerMessage(err)
	if reason == "" {
		reason = err.Error()
	}
	return "Checkout failed: " + reason
}
