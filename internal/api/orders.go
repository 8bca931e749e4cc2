package api

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

type PlaceOrderRequestDTO struct {
	PaymentID       string `json:"paymentId"`
	RazorpayOrderID string `json:"razorpayOrderId"`
	Signature       string `json:"signature"`
}

// PlaceOrder hands the gateway's payment confirmation to the order service,
// which verifies it and persists the order.
func (c *Client) PlaceOrder(ctx context.Context, conf domain.PaymentConfirmation) (domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, http.MethodPost, "/Order/PlaceOrder", true, PlaceOrderRequestDTO{
		PaymentID:       conf.PaymentID,
		RazorpayOrderID: conf.GatewayOrderID,
		Signature:       conf.Signature,
	}, &order)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "/Order/MyOrders", true, nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
