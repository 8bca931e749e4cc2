package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

const refreshKey = "my-orders"

// ErrLoadFailed wraps every non-auth failure to fetch the order list.
var ErrLoadFailed = errors.New("failed to load orders")

type Lister interface {
	MyOrders(ctx context.Context) ([]domain.Order, error)
}

// History caches the user's past orders for display.
type History struct {
	lister Lister
	log    logrus.FieldLogger
	sfg    singleflight.Group // Collapses concurrent refreshes into one request

	mu     sync.RWMutex
	orders []domain.Order
}

func NewHistory(lister Lister, log logrus.FieldLogger) *History {
	return &History{lister: lister, log: log}
}

// Refresh fetches the order list. Auth failures are returned untouched so the
// caller can send the user to login; anything else keeps the previous list.
func (h *History) Refresh(ctx context.Context) error {
	_, err, shared := h.sfg.Do(refreshKey, func() (interface{}, error) {
		orders, err := h.lister.MyOrders(ctx)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.orders = orders
		h.mu.Unlock()
		return nil, nil
	})
	if shared {
		h.log.Debug("order refresh shared with an in-flight request")
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrLoginRequired) || errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	h.log.WithError(err).Warn("failed to fetch orders")
	return fmt.Errorf("%w: %w", ErrLoadFailed, err)
}

// All returns every order, newest first.
func (h *History) All() []domain.Order {
	h.mu.RLock()
	orders := slices.Clone(h.orders)
	h.mu.RUnlock()

	slices.SortStableFunc(orders, func(a, b domain.Order) int {
		return b.OrderDate.Compare(a.OrderDate.Time)
	})
	return orders
}

// Recent returns the newest order only.
func (h *History) Recent() (domain.Order, bool) {
	all := h.All()
	if len(all) == 0 {
		return domain.Order{}, false
	}
	return all[0], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orders)
}

// Status is the order's status, or Completed when the server sent none.
func Status(o domain.Order) string {
	return o.DisplayStatus()
}

// Message is the text shown when a refresh fails.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrLoginRequired), errors.Is(err, api.ErrUnauthorized):
		return "Please login to continue"
	default:
		return "Failed to load orders. Please try again."
	}
}
