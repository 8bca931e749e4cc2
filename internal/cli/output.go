package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

// errLoginNotice is returned after the guard already told the user to log
// in, so the generic error line is not printed twice.
var errLoginNotice = errors.New("login required")

// userError shows msg to the user and keeps the cause for logging.
type userError struct {
	msg   string
	cause error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.cause }

func (a *app) fail(msg string, err error) error {
	if errors.Is(err, auth.ErrLoginRequired) || errors.Is(err, api.ErrUnauthorized) {
		a.log.WithError(err).Debug("credential unusable")
		return errLoginNotice
	}
	a.log.WithError(err).Debug(msg)
	return &userError{msg: msg, cause: err}
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimSpace(line), nil
}

func (a *app) confirm(_ context.Context, question string) (bool, error) {
	answer, err := a.prompt(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (a *app) printCart() {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "Your cart is empty")
		return
	}

	unit := a.currency
	tw := newTable(a.out, "ID", "PRODUCT", "PRICE", "QTY", "SUBTOTAL")
	for _, l := range lines {
		tw.row(
			fmt.Sprint(l.ProductID),
			l.ProductName,
			domain.Money{Amount: l.ProductPrice, Currency: unit}.String(),
			fmt.Sprint(l.Quantity),
			domain.Money{Amount: l.Subtotal(), Currency: unit}.String(),
		)
	}
	tw.flush()
	fmt.Fprintf(a.out, "\nItems: %d  Total: %s\n", a.cart.ItemCount(), domain.Money{Amount: a.cart.Total(), Currency: unit})
}

type table struct {
	tw *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	t.row(headers...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() {
	_ = t.tw.Flush()
}

func alwaysYes(context.Context, string) (bool, error) { return true, nil }
