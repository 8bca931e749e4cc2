package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle                  CheckoutStatus = "IDLE"
	CheckoutStatusScriptLoading         CheckoutStatus = "SCRIPT_LOADING"
	CheckoutStatusGatewayOpen           CheckoutStatus = "GATEWAY_OPEN"
	CheckoutStatusPaymentHandlerRunning CheckoutStatus = "PAYMENT_HANDLER_RUNNING"
	CheckoutStatusOrderPlacing          CheckoutStatus = "ORDER_PLACING"
	CheckoutStatusSuccess               CheckoutStatus = "SUCCESS"
	CheckoutStatusFailure               CheckoutStatus = "FAILURE"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:                  {CheckoutStatusScriptLoading},
	CheckoutStatusScriptLoading:         {CheckoutStatusGatewayOpen, CheckoutStatusFailure},
	CheckoutStatusGatewayOpen:           {CheckoutStatusPaymentHandlerRunning, CheckoutStatusFailure, CheckoutStatusIdle},
	CheckoutStatusPaymentHandlerRunning: {CheckoutStatusOrderPlacing, CheckoutStatusFailure},
	CheckoutStatusOrderPlacing:          {CheckoutStatusSuccess, CheckoutStatusFailure},
	CheckoutStatusSuccess:               {CheckoutStatusIdle},
	CheckoutStatusFailure:               {CheckoutStatusIdle},
}

// CanTransitionTo reports whether the checkout flow may move from one status
// to the next.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSuccess || s == CheckoutStatusFailure
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
