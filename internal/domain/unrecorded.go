package domain

import "time"

// UnrecordedPayment describes a payment the gateway accepted but the order
// service failed to persist. It is handed to the reconciliation path so a
// human can settle it; the client never retries on its own.
type UnrecordedPayment struct {
	Confirmation PaymentConfirmation
	AmountMinor  int64
	Currency     string
	Items        []CartLine
	Reason       string
	OccurredAt   time.Time
}
