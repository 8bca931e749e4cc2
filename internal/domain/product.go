package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID       int64           `json:"productID"`
	Name     string          `json:"productName"`
	Price    decimal.Decimal `json:"productPrice"`
	Brand    string          `json:"brand"`
	Category string          `json:"category,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
}
