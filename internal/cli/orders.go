package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/cart-client/internal/domain"
	"github.com/fjod/go_cart/cart-client/internal/orders"
)

func (a *app) ordersCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show your most recent order, or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history := orders.NewHistory(a.client, a.log)
			if err := history.Refresh(cmd.Context()); err != nil {
				return a.fail(orders.Message(err), err)
			}

			list := history.All()
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No orders yet")
				return nil
			}
			if !all {
				list = list[:1]
			}

			for i, o := range list {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				a.printOrder(o)
			}
			if !all && history.Len() > 1 {
				fmt.Fprintf(a.out, "\nView all orders (%d) with --all\n", history.Len())
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every order, newest first")
	return cmd
}

func (a *app) printOrder(o domain.Order) {
	date := "unknown date"
	if !o.OrderDate.IsZero() {
		date = o.OrderDate.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(a.out, "Order #%d  %s  %s  %s\n", o.OrderID, date, orders.Status(o),
		domain.Money{Amount: o.TotalAmount, Currency: a.currency})

	tw := newTable(a.out, "  PRODUCT", "QTY", "UNIT PRICE", "SUBTOTAL")
	for _, it := range o.Items {
		tw.row(
			"  "+it.ProductName,
			fmt.Sprint(it.Quantity),
			domain.Money{Amount: it.UnitPrice, Currency: a.currency}.String(),
			domain.Money{Amount: it.Subtotal(), Currency: a.currency}.String(),
		)
	}
	tw.flush()
}
