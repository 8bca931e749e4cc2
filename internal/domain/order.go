package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultOrderStatus = "Completed"

type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the immutable snapshot the server hands back after a successful
// order placement, and the element type of the order history.
type Order struct {
	OrderID         int64           `json:"orderId"`
	OrderDate       Timestamp       `json:"orderDate"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Items           []OrderItem     `json:"items"`
	Status          string          `json:"status,omitempty"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
}

// DisplayStatus returns the order status, or "Completed" when the server did
// not send one.
func (o Order) DisplayStatus() string {
	if o.Status == "" {
		return DefaultOrderStatus
	}
	return o.Status
}

// Timestamp accepts RFC 3339 as well as the zone-less layouts the order API
// emits for DateTime values.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
