package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

const loadKey = "cart"

const ClearPrompt = "Are you sure you want to clear your cart?"

// Backend is the slice of the storefront API the cart needs.
type Backend interface {
	GetCart(ctx context.Context) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, productID int64, delta int) error
	RemoveFromCart(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Store owns the session's cart lines. Quantity changes are applied
// optimistically; removals and clears only after the server confirms them.
// At most one request per product is in flight at a time.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
	sfg     singleflight.Group

	mu      sync.Mutex
	lines   []domain.CartLine
	pending map[int64]struct{}
}

func NewStore(backend Backend, log logrus.FieldLogger) *Store {
	return &Store{
		backend: backend,
		log:     log,
		pending: make(map[int64]struct{}),
	}
}

// Load replaces local state with the server's cart. On failure the previous
// lines are kept. Concurrent calls share one request.
func (s *Store) Load(ctx context.Context) error {
	_, err, shared := s.sfg.Do(loadKey, func() (interface{}, error) {
		lines, err := s.backend.GetCart(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.lines = slices.Clone(lines)
		s.mu.Unlock()
		return nil, nil
	})
	if shared {
		s.log.Debug("cart load shared with an in-flight request")
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to fetch cart")
		return &OpError{Op: OpLoad, Err: err}
	}
	return nil
}

// Clear deletes every line after the user confirms. Declining is a no-op.
func (s *Store) Clear(ctx context.Context, confirm Confirmer) error {
	ok, err := confirm.Confirm(ctx, ClearPrompt)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.backend.ClearCart(ctx); err != nil {
		s.log.WithError(err).Warn("failed to clear cart")
		return &OpError{Op: OpClear, Err: err}
	}
	s.Reset()
	return nil
}

// Reset empties local state without calling the API. Used once the server has
// already emptied the cart, e.g. after an order is placed.
func (s *Store) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

// Remove deletes one line. The line stays visible until the server confirms.
func (s *Store) Remove(ctx context.Context, productID int64) error {
	s.mu.Lock()
	if indexOf(s.lines, productID) < 0 {
		s.mu.Unlock()
		return ErrNotInCart
	}
	if !s.markPendingLocked(productID) {
		s.mu.Unlock()
		return ErrPending
	}
	s.mu.Unlock()

	err := s.backend.RemoveFromCart(ctx, productID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, productID)
	if err != nil {
		s.log.WithError(err).WithField("product_id", productID).Warn("failed to remove item")
		return &OpError{Op: OpRemove, ProductID: productID, Err: err}
	}
	s.lines = slices.DeleteFunc(s.lines, func(l domain.CartLine) bool {
		return l.ProductID == productID
	})
	return nil
}

// AdjustQuantity moves a line's quantity by delta. A result below one removes
// the line instead. Otherwise the new quantity is shown at once, the delta is
// sent to the server, and the prior quantity comes back if the server refuses.
func (s *Store) AdjustQuantity(ctx context.Context, productID int64, delta int) error {
	s.mu.Lock()
	i := indexOf(s.lines, productID)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotInCart
	}
	if _, busy := s.pending[productID]; busy {
		s.mu.Unlock()
		return ErrPending
	}
	if delta == 0 {
		s.mu.Unlock()
		return nil
	}

	change := newQuantityChange(s.lines[i], delta)
	if change.next < 1 {
		s.mu.Unlock()
		return s.Remove(ctx, productID)
	}
	change.apply(s.lines)
	s.markPendingLocked(productID)
	s.mu.Unlock()

	err := s.backend.AddToCart(ctx, productID, delta)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, productID)
	if err != nil {
		rolledBack := change.rollback(s.lines)
		s.log.WithError(err).WithFields(logrus.Fields{
			"product_id":  productID,
			"delta":       delta,
			"rolled_back": rolledBack,
		}).Warn("failed to update quantity")
		return &OpError{Op: OpAdjust, ProductID: productID, Err: err}
	}
	return nil
}

// Add puts qty units of a product into the cart, creating the line if needed,
// then refreshes from the server to pick up the line's name and price. If
// only the refresh fails the error wraps ErrStale.
func (s *Store) Add(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	if !s.markPendingLocked(productID) {
		s.mu.Unlock()
		return ErrPending
	}
	s.mu.Unlock()

	err := s.backend.AddToCart(ctx, productID, qty)

	s.mu.Lock()
	delete(s.pending, productID)
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("product_id", productID).Warn("failed to add item")
		return &OpError{Op: OpAdd, ProductID: productID, Err: err}
	}
	s.mu.Unlock()

	if err := s.Load(ctx); err != nil {
		s.mu.Lock()
		if i := indexOf(s.lines, productID); i >= 0 {
			s.lines[i].Quantity += qty
		}
		s.mu.Unlock()
		return &OpError{Op: OpLoad, ProductID: productID, Err: fmt.Errorf("%w: %w", ErrStale, err)}
	}
	return nil
}

func (s *Store) markPendingLocked(productID int64) bool {
	if _, busy := s.pending[productID]; busy {
		return false
	}
	s.pending[productID] = struct{}{}
	return true
}

// Lines returns a copy of the current lines in server order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

func (s *Store) Line(productID int64) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.lines, productID); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

func (s *Store) IsPending(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.pending[productID]
	return busy
}

// Total is the client-side sum used for display and for the gateway amount.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.lines)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartItemCount(s.lines)
}

func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}
