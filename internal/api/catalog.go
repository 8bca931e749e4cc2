package api

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

// Products lists the storefront catalog. The endpoint is public.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/Product", false, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}
