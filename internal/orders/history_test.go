package orders

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

type mockLister struct {
	orders []domain.Order
	err    error
	calls  atomic.Int32
	gate   chan struct{}
}

func (m *mockLister) MyOrders(context.Context) ([]domain.Order, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

func order(id int64, date time.Time, status string) domain.Order {
	return domain.Order{
		OrderID:     id,
		OrderDate:   domain.Timestamp{Time: date},
		TotalAmount: decimal.NewFromFloat(gofakeit.Price(100, 5000)).Round(2),
		Status:      status,
	}
}

func TestRefresh_SortsNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lister := &mockLister{orders: []domain.Order{
		order(1, base, ""),
		order(3, base.Add(48*time.Hour), "Shipped"),
		order(2, base.Add(24*time.Hour), ""),
	}}
	h := NewHistory(lister, quietLogger())

	require.NoError(t, h.Refresh(context.Background()))

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].OrderID, all[1].OrderID, all[2].OrderID})

	recent, ok := h.Recent()
	require.True(t, ok)
	assert.Equal(t, int64(3), recent.OrderID)
	assert.Equal(t, "Shipped", Status(recent))
	assert.Equal(t, "Completed", Status(all[2]))
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	lister := &mockLister{orders: []domain.Order{order(1, time.Now(), "")}}
	h := NewHistory(lister, quietLogger())
	require.NoError(t, h.Refresh(context.Background()))

	lister.err = errors.New("connection reset")
	err := h.Refresh(context.Background())

	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, "Failed to load orders. Please try again.", Message(err))
	assert.Equal(t, 1, h.Len())
}

func TestRefresh_AuthErrorPassedThrough(t *testing.T) {
	lister := &mockLister{err: &api.StatusError{Code: 401}}
	h := NewHistory(lister, quietLogger())

	err := h.Refresh(context.Background())

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrLoadFailed)
}

func TestRecent_Empty(t *testing.T) {
	h := NewHistory(&mockLister{}, quietLogger())

	_, ok := h.Recent()
	assert.False(t, ok)
}

func TestRefresh_ConcurrentCallsShareRequest(t *testing.T) {
	lister := &mockLister{
		orders: []domain.Order{order(1, time.Now(), "")},
		gate:   make(chan struct{}),
	}
	h := NewHistory(lister, quietLogger())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Refresh(context.Background()))
		}()
	}

	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(lister.gate)
	wg.Wait()

	assert.Less(t, lister.calls.Load(), int32(5))
	assert.Equal(t, 1, h.Len())
}
