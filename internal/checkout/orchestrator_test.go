package checkout

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"

	"github.com/fjod/go_cart/cart-client/internal/auth"
	d "github.com/fjod/go_cart/cart-client/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type credsFunc func(ctx context.Context) (string, error)

func (f credsFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

var loggedIn = credsFunc(func(context.Context) (string, error) { return "token", nil })

type fakeCart struct {
	mu    sync.Mutex
	lines []d.CartLine
	reset bool
}

func (c *fakeCart) Lines() []d.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *fakeCart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return d.CartTotal(c.lines)
}

func (c *fakeCart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.reset = true
}

type fakeSession struct {
	succeeded chan d.PaymentConfirmation
	failed    chan string
	dismissed chan struct{}
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		succeeded: make(chan d.PaymentConfirmation, 1),
		failed:    make(chan string, 1),
		dismissed: make(chan struct{}, 1),
	}
}

func (s *fakeSession) Succeeded() <-chan d.PaymentConfirmation { return s.succeeded }
func (s *fakeSession) Failed() <-chan string                   { return s.failed }
func (s *fakeSession) Dismissed() <-chan struct{}              { return s.dismissed }
func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeGateway struct {
	loadErr error
	openErr error
	session *fakeSession
	opened  []d.PaymentRequest
	// onOpen runs after the dialog opens, standing in for the user.
	onOpen func(s *fakeSession)
}

func (g *fakeGateway) Load(context.Context) error { return g.loadErr }

func (g *fakeGateway) Open(_ context.Context, req d.PaymentRequest) (Session, error) {
	g.opened = append(g.opened, req)
	if g.openErr != nil {
		return nil, g.openErr
	}
	if g.onOpen != nil {
		g.onOpen(g.session)
	}
	return g.session, nil
}

type fakePlacer struct {
	order d.Order
	err   error
	got   []d.PaymentConfirmation
}

func (p *fakePlacer) PlaceOrder(_ context.Context, conf d.PaymentConfirmation) (d.Order, error) {
	p.got = append(p.got, conf)
	if p.err != nil {
		return d.Order{}, p.err
	}
	return p.order, nil
}

type fakeReporter struct {
	reported []d.UnrecordedPayment
	err      error
}

func (r *fakeReporter) ReportUnrecorded(_ context.Context, p d.UnrecordedPayment) error {
	r.reported = append(r.reported, p)
	return r.err
}

var testConfirmation = d.PaymentConfirmation{
	PaymentID:      "pay_123",
	GatewayOrderID: "order_456",
	Signature:      "sig",
}

type fixture struct {
	cart     *fakeCart
	gateway  *fakeGateway
	placer   *fakePlacer
	reporter *fakeReporter
	orch     *Orchestrator
}

func newFixture(creds Credentials) *fixture {
	log := logrus.New()
	log.Out = io.Discard

	f := &fixture{
		cart: &fakeCart{lines: []d.CartLine{
			{ProductID: 1, ProductName: "Whey", ProductPrice: decimal.RequireFromString("1250.50"), Quantity: 2},
			{ProductID: 2, ProductName: "Straps", ProductPrice: decimal.RequireFromString("199.99"), Quantity: 1},
		}},
		gateway:  &fakeGateway{session: newFakeSession()},
		placer:   &fakePlacer{order: d.Order{OrderID: 77, TotalAmount: decimal.RequireFromString("2700.99")}},
		reporter: &fakeReporter{},
	}
	f.orch = NewOrchestrator(creds, f.cart, f.gateway, f.placer, f.reporter, Options{
		Currency:     currency.INR,
		StoreName:    "GymApp Store",
		PlaceTimeout: time.Second,
	}, log)
	return f
}

func succeed(s *fakeSession) { s.succeeded <- testConfirmation }

func TestCheckout_Success(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.onOpen = succeed

	outcome, err := f.orch.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, d.CheckoutStatusSuccess, outcome.Status)
	require.NotNil(t, outcome.Order)
	assert.Equal(t, int64(77), outcome.Order.OrderID)
	assert.Equal(t, "✅ Payment Successful!\nOrder ID: 77\nAmount: INR 2700.99", outcome.Message)

	assert.True(t, f.cart.reset)
	assert.Equal(t, []d.PaymentConfirmation{testConfirmation}, f.placer.got)
	assert.True(t, f.gateway.session.closed)
	assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())

	require.Len(t, f.gateway.opened, 1)
	assert.Equal(t, d.PaymentRequest{
		AmountMinor: 270099,
		Currency:    "INR",
		StoreName:   "GymApp Store",
		Description: "Order for 2 item(s)",
		ItemCount:   2,
	}, f.gateway.opened[0])
}

func TestCheckout_PreconditionsRefuseWithoutGateway(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		f := newFixture(credsFunc(func(context.Context) (string, error) { return "", auth.ErrLoginRequired }))

		outcome, err := f.orch.Checkout(context.Background())

		assert.ErrorIs(t, err, auth.ErrLoginRequired)
		assert.Equal(t, "Please login to continue", outcome.Message)
		assert.Empty(t, f.gateway.opened)
		assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(loggedIn)
		f.cart.lines = nil

		outcome, err := f.orch.Checkout(context.Background())

		assert.ErrorIs(t, err, ErrEmptyCart)
		assert.Equal(t, "Your cart is empty", outcome.Message)
		assert.Empty(t, f.gateway.opened)
		assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())
	})

	t.Run("zero total", func(t *testing.T) {
		f := newFixture(loggedIn)
		f.cart.lines = []d.CartLine{{ProductID: 9, ProductName: "Sample", ProductPrice: decimal.Zero, Quantity: 1}}
		f.gateway.loadErr = errors.New("must not be called")

		outcome, err := f.orch.Checkout(context.Background())

		assert.ErrorIs(t, err, ErrEmptyCart)
		assert.Equal(t, d.CheckoutStatusIdle, outcome.Status)
		assert.Equal(t, "Your cart is empty", outcome.Message)
		assert.Empty(t, f.gateway.opened)
		assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())
	})
}

func TestCheckout_PlacementFailureKeepsCart(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.onOpen = succeed
	placeErr := errors.New("502 bad gateway")
	f.placer.err = placeErr

	outcome, err := f.orch.Checkout(context.Background())

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, testConfirmation, partial.Confirmation)
	assert.ErrorIs(t, err, placeErr)
	assert.Equal(t, "Payment succeeded but order could not be saved. Please contact support.", outcome.Message)
	assert.Equal(t, d.CheckoutStatusFailure, outcome.Status)

	assert.False(t, f.cart.reset)
	assert.Len(t, f.cart.Lines(), 2)
	assert.Len(t, f.placer.got, 1, "order placement is never retried")

	require.Len(t, f.reporter.reported, 1)
	rep := f.reporter.reported[0]
	assert.Equal(t, testConfirmation, rep.Confirmation)
	assert.Equal(t, int64(270099), rep.AmountMinor)
	assert.Equal(t, "502 bad gateway", rep.Reason)
	assert.Len(t, rep.Items, 2)
}

func TestCheckout_ReporterFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.onOpen = succeed
	f.placer.err = errors.New("boom")
	f.reporter.err = errors.New("kafka down")

	outcome, err := f.orch.Checkout(context.Background())

	assert.Equal(t, msgPartialFailure, outcome.Message)
	assert.Equal(t, msgPartialFailure, Message(err))
}

func TestCheckout_GatewayFailure(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.onOpen = func(s *fakeSession) { s.failed <- "Card declined by bank" }

	outcome, err := f.orch.Checkout(context.Background())

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "❌ Payment failed: Card declined by bank", outcome.Message)
	assert.Equal(t, d.CheckoutStatusFailure, outcome.Status)
	assert.Empty(t, f.placer.got)
	assert.False(t, f.cart.reset)
	assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())
}

func TestCheckout_DismissIsSilent(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.onOpen = func(s *fakeSession) { s.dismissed <- struct{}{} }

	outcome, err := f.orch.Checkout(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Dismissed)
	assert.Empty(t, outcome.Message)
	assert.Equal(t, d.CheckoutStatusIdle, outcome.Status)
	assert.Empty(t, f.placer.got)
}

func TestCheckout_ScriptLoadFailure(t *testing.T) {
	f := newFixture(loggedIn)
	f.gateway.loadErr = errors.New("dial tcp: no such host")

	outcome, err := f.orch.Checkout(context.Background())

	var scriptErr *ScriptLoadError
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "Razorpay SDK failed to load. Please try again.", outcome.Message)
	assert.Empty(t, f.gateway.opened)

	// retryable
	f.gateway.loadErr = nil
	f.gateway.onOpen = succeed
	_, err = f.orch.Checkout(context.Background())
	require.NoError(t, err)
}

func TestCheckout_ContextCancelledWhileOpen(t *testing.T) {
	f := newFixture(loggedIn)
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.onOpen = func(*fakeSession) { cancel() }

	outcome, err := f.orch.Checkout(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, d.CheckoutStatusFailure, outcome.Status)
	assert.Equal(t, d.CheckoutStatusIdle, f.orch.Status())
	assert.True(t, f.gateway.session.closed)
}

func TestCheckout_OnlyOneAtATime(t *testing.T) {
	f := newFixture(loggedIn)
	opened := make(chan struct{})
	f.gateway.onOpen = func(*fakeSession) { close(opened) }

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Checkout(context.Background())
		done <- err
	}()
	<-opened

	_, err := f.orch.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	f.gateway.session.dismissed <- struct{}{}
	require.NoError(t, <-done)
}

func TestCheckout_PlacementSurvivesCallerCancel(t *testing.T) {
	f := newFixture(loggedIn)
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.onOpen = succeed
	placer := &ctxCheckingPlacer{cancel: cancel}
	f.orch.orders = placer

	_, err := f.orch.Checkout(ctx)

	require.NoError(t, err)
	assert.NoError(t, placer.ctxErr)
}

type ctxCheckingPlacer struct {
	cancel context.CancelFunc
	ctxErr error
}

func (p *ctxCheckingPlacer) PlaceOrder(ctx context.Context, _ d.PaymentConfirmation) (d.Order, error) {
	p.cancel()
	p.ctxErr = ctx.Err()
	return d.Order{OrderID: 1}, nil
}

func TestMessage_FallsBackToError(t *testing.T) {
	assert.Equal(t, "Checkout failed: boom", Message(errors.New("boom")))
	assert.Equal(t, "Checkout is already in progress", Message(ErrCheckoutInProgress))
}
