package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// GetCart returns the current user's cart lines in server order.
func (c *Client) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := c.do(ctx, http.MethodGet, "/Cart", true, nil, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return lines, nil
}

// AddToCart applies a signed quantity delta. The endpoint is additive: the
// server adds delta to whatever it has stored, creating the line if needed.
func (c *Client) AddToCart(ctx context.Context, productID int64, delta int) error {
	return c.do(ctx, http.MethodPost, "/Cart/Add", true, AddItemRequestDTO{
		ProductID: productID,
		Quantity:  delta,
	}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/Cart/%d", productID), true, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/Cart/Clear", true, nil, nil)
}
