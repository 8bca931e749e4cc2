package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/cart-client/internal/cart"
	"github.com/fjod/go_cart/cart-client/internal/checkout"
	"github.com/fjod/go_cart/cart-client/internal/gateway"
	"github.com/fjod/go_cart/cart-client/internal/reconcile"
)

type reporter interface {
	checkout.Reporter
	Close() error
}

func (a *app) newReporter() reporter {
	if len(a.cfg.Reconcile.Brokers) == 0 {
		return reconcile.NewLogReporter(a.log)
	}
	return reconcile.NewKafkaReporter(a.log, a.cfg.Reconcile.Topic, a.cfg.Reconcile.Brokers...)
}

func (a *app) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Pay for the cart through the hosted payment page",
		Long: `Open the payment page for the current cart.

gymcart serves a local page that runs the payment dialog; open the printed
URL in a browser. The command waits until you pay, the payment fails, or you
close the dialog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.cart.Load(ctx); err != nil {
				return a.fail(cart.Message(err), err)
			}

			prefill := a.cfg.Gateway.PrefillEmail
			if prefill == "" {
				if claims, err := a.guard.Whoami(ctx); err == nil {
					prefill = claims.Email
				}
			}
			gw := a.newGateway(gateway.Options{
				Key:          a.cfg.Gateway.Key,
				ScriptURL:    a.cfg.Gateway.ScriptURL,
				ListenAddr:   a.cfg.Gateway.ListenAddr,
				ThemeColor:   a.cfg.Gateway.ThemeColor,
				PrefillEmail: prefill,
			}, func(url string) {
				fmt.Fprintf(a.out, "Open %s in your browser to pay.\n", url)
			}, a.log)

			rep := a.newReporter()
			defer func() {
				if err := rep.Close(); err != nil {
					a.log.WithError(err).Warn("close reconciliation reporter")
				}
			}()

			orch := checkout.NewOrchestrator(a.guard, a.cart, gw, a.client, rep, checkout.Options{
				Currency:  a.currency,
				StoreName: a.cfg.Gateway.StoreName,
			}, a.log)

			outcome, err := orch.Checkout(ctx)
			if err != nil {
				var partial *checkout.PartialFailureError
				if errors.As(err, &partial) {
					fmt.Fprintf(a.out, "Payment reference: %s (gateway order %s)\n",
						partial.Confirmation.PaymentID, partial.Confirmation.GatewayOrderID)
				}
				return a.fail(outcome.Message, err)
			}
			if outcome.Dismissed {
				fmt.Fprintln(a.out, "Checkout cancelled")
				return nil
			}
			fmt.Fprintln(a.out, outcome.Message)
			if outcome.Order != nil {
				fmt.Fprintln(a.out)
				a.printOrder(*outcome.Order)
			}
			return nil
		},
	}
}
