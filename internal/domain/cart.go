package domain

import "github.com/shopspring/decimal"

// CartLine is one product in the user's cart as returned by GET /Cart.
// ProductName and ProductPrice are a snapshot taken at fetch time.
type CartLine struct {
	CartID       int64           `json:"cartId"`
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
}

// Subtotal is the display price of the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.ProductPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotal sums price*quantity over lines. It is a client-side figure used
// for display and for the amount handed to the payment gateway only; the
// persisted order total always comes from the server.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CartItemCount sums quantities over lines.
func CartItemCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
