package domain

// PaymentConfirmation is the signed triple the gateway hands back on a
// successful payment. The client forwards it untouched; signature
// verification is the order service's job.
type PaymentConfirmation struct {
	PaymentID      string
	GatewayOrderID string
	Signature      string
}

// PaymentRequest is what the checkout hands to the gateway dialog.
type PaymentRequest struct {
	AmountMinor int64
	Currency    string
	StoreName   string
	Description string
	ItemCount   int
}
