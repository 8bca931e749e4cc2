package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	d "github.com/fjod/go_cart/cart-client/internal/domain"
)

// Credentials is the precondition check on the stored login.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// Cart is the view of the cart store the checkout needs.
type Cart interface {
	Lines() []d.CartLine
	Total() decimal.Decimal
	Reset()
}

// Gateway loads the payment script and opens its dialog.
type Gateway interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, req d.PaymentRequest) (Session, error)
}

// Session is one open gateway dialog. Exactly one of the three channels
// delivers; the rest never do.
type Session interface {
	Succeeded() <-chan d.PaymentConfirmation
	Failed() <-chan string
	Dismissed() <-chan struct{}
	Close() error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, conf d.PaymentConfirmation) (d.Order, error)
}

// Reporter hands paid-but-unrecorded payments to a human-operated
// reconciliation path.
type Reporter interface {
	ReportUnrecorded(ctx context.Context, p d.UnrecordedPayment) error
}

type Options struct {
	Currency  currency.Unit
	StoreName string
	// PlaceTimeout bounds order placement. Placement is detached from the
	// caller's context once the payment has gone through.
	PlaceTimeout time.Duration
}

// Outcome is what the user is told when the flow ends.
type Outcome struct {
	Status    d.CheckoutStatus
	Order     *d.Order
	Dismissed bool
	Message   string
}

type Orchestrator struct {
	creds    Credentials
	cart     Cart
	gateway  Gateway
	orders   OrderPlacer
	reporter Reporter
	machine  *Machine
	opts     Options
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewOrchestrator(creds Credentials, cart Cart, gateway Gateway, orders OrderPlacer, reporter Reporter, opts Options, log logrus.FieldLogger) *Orchestrator {
	if opts.PlaceTimeout <= 0 {
		opts.PlaceTimeout = 30 * time.Second
	}
	return &Orchestrator{
		creds:    creds,
		cart:     cart,
		gateway:  gateway,
		orders:   orders,
		reporter: reporter,
		machine:  NewMachine(log),
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

func (o *Orchestrator) Status() d.CheckoutStatus {
	return o.machine.Status()
}

// Checkout runs one payment flow to completion. Precondition failures return
// before any state change or gateway call. Dismissal is not an error. Every
// other non-success ends in an error whose Message is also set on the
// Outcome.
func (o *Orchestrator) Checkout(ctx context.Context) (Outcome, error) {
	if _, err := o.creds.Token(ctx); err != nil {
		return Outcome{Status: d.CheckoutStatusIdle, Message: Message(err)}, err
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return Outcome{Status: d.CheckoutStatusIdle, Message: msgEmptyCart}, ErrEmptyCart
	}
	req, err := o.paymentRequest(lines)
	if err != nil {
		return Outcome{Status: d.CheckoutStatusIdle, Message: Message(err)}, err
	}
	if err := o.machine.Begin(); err != nil {
		return Outcome{Status: o.machine.Status(), Message: msgInProgress}, err
	}

	outcome, err := o.run(ctx, lines, req)
	outcome.Status = o.machine.Settle()
	if outcome.Message == "" && err != nil {
		outcome.Message = Message(err)
	}
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, lines []d.CartLine, req d.PaymentRequest) (Outcome, error) {
	if err := o.gateway.Load(ctx); err != nil {
		o.fail()
		o.log.WithError(err).Warn("gateway script failed to load")
		return Outcome{}, &ScriptLoadError{Err: err}
	}

	session, err := o.gateway.Open(ctx, req)
	if err != nil {
		o.fail()
		return Outcome{}, fmt.Errorf("open gateway: %w", err)
	}
	defer func() {
		if errClose := session.Close(); errClose != nil {
			o.log.WithError(errClose).Warn("gateway session close failed")
		}
	}()
	if err := o.machine.Transition(d.CheckoutStatusGatewayOpen); err != nil {
		return Outcome{}, err
	}

	select {
	case conf := <-session.Succeeded():
		return o.placeOrder(ctx, conf, req, lines)

	case desc := <-session.Failed():
		o.fail()
		o.log.WithField("description", desc).Info("gateway reported payment failure")
		return Outcome{}, &GatewayError{Description: desc}

	case <-session.Dismissed():
		if err := o.machine.Transition(d.CheckoutStatusIdle); err != nil {
			return Outcome{}, err
		}
		o.log.Info("checkout cancelled by user")
		return Outcome{Dismissed: true}, nil

	case <-ctx.Done():
		o.fail()
		return Outcome{}, ctx.Err()
	}
}

func (o *Orchestrator) placeOrder(ctx context.Context, conf d.PaymentConfirmation, req d.PaymentRequest, lines []d.CartLine) (Outcome, error) {
	if err := o.machine.Transition(d.CheckoutStatusPaymentHandlerRunning); err != nil {
		return Outcome{}, err
	}
	if err := o.machine.Transition(d.CheckoutStatusOrderPlacing); err != nil {
		return Outcome{}, err
	}

	log := o.log.WithFields(logrus.Fields{
		"payment_id":       conf.PaymentID,
		"gateway_order_id": conf.GatewayOrderID,
	})

	placeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.PlaceTimeout)
	defer cancel()
	order, err := o.orders.PlaceOrder(placeCtx, conf)
	if err != nil {
		o.fail()
		log.WithError(err).Error("payment succeeded but order placement failed")
		o.report(placeCtx, d.UnrecordedPayment{
			Confirmation: conf,
			AmountMinor:  req.AmountMinor,
			Currency:     req.Currency,
			Items:        lines,
			Reason:       err.Error(),
			OccurredAt:   o.now(),
		})
		return Outcome{Message: msgPartialFailure}, &PartialFailureError{Confirmation: conf, Err: err}
	}

	if err := o.machine.Transition(d.CheckoutStatusSuccess); err != nil {
		return Outcome{}, err
	}
	o.cart.Reset()
	log.WithField("order_id", order.OrderID).Info("order placed")

	return Outcome{
		Order:   &order,
		Message: o.successMessage(order),
	}, nil
}

func (o *Orchestrator) paymentRequest(lines []d.CartLine) (d.PaymentRequest, error) {
	total := o.cart.Total()
	minor, err := d.Money{Amount: total, Currency: o.opts.Currency}.MinorUnits()
	if err != nil {
		return d.PaymentRequest{}, fmt.Errorf("convert total %s: %w", total, err)
	}
	if minor == 0 {
		return d.PaymentRequest{}, ErrEmptyCart
	}
	return d.PaymentRequest{
		AmountMinor: minor,
		Currency:    o.opts.Currency.String(),
		StoreName:   o.opts.StoreName,
		Description: fmt.Sprintf("Order for %d item(s)", len(lines)),
		ItemCount:   len(lines),
	}, nil
}

// successMessage shows the server's total, not the one computed locally.
func (o *Orchestrator) successMessage(order d.Order) string {
	amount := d.Money{Amount: order.TotalAmount, Currency: o.opts.Currency}
	return fmt.Sprintf("✅ Payment Successful!\nOrder ID: %d\nAmount: %s", order.OrderID, amount)
}

func (o *Orchestrator) report(ctx context.Context, p d.UnrecordedPayment) {
	if o.reporter == nil {
		return
	}
	if err := o.reporter.ReportUnrecorded(ctx, p); err != nil {
		o.log.WithError(err).WithField("payment_id", p.Confirmation.PaymentID).
			Error("failed to report unrecorded payment")
	}
}

func (o *Orchestrator) fail() {
	if err := o.machine.Transition(d.CheckoutStatusFailure); err != nil {
		o.log.WithError(err).Warn("checkout failure transition")
	}
}
