package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/cart-client/internal/cart"
)

func parseProductID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", arg)
	}
	return id, nil
}

func (a *app) cartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cart.Load(cmd.Context()); err != nil {
				return a.fail(cart.Message(err), err)
			}
			a.printCart()
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			qty := 1
			if len(args) == 2 {
				if qty, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
			}

			if err := a.cart.Add(cmd.Context(), id, qty); err != nil {
				return a.fail(cart.Message(err), err)
			}
			name := fmt.Sprintf("product %d", id)
			if line, ok := a.cart.Line(id); ok {
				name = line.ProductName
			}
			fmt.Fprintf(a.out, "Added %q to cart!\n", name)
			return nil
		},
	}
}

func (a *app) adjustCmd(use, short string, delta int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			if err := a.cart.Load(cmd.Context()); err != nil {
				return a.fail(cart.Message(err), err)
			}
			if err := a.cart.AdjustQuantity(cmd.Context(), id, delta); err != nil {
				return a.fail(cart.Message(err), err)
			}
			a.printCart()
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			if err := a.cart.Load(cmd.Context()); err != nil {
				return a.fail(cart.Message(err), err)
			}
			if err := a.cart.Remove(cmd.Context(), id); err != nil {
				return a.fail(cart.Message(err), err)
			}
			a.printCart()
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cart.Load(cmd.Context()); err != nil {
				return a.fail(cart.Message(err), err)
			}
			if a.cart.Empty() {
				fmt.Fprintln(a.out, "Your cart is empty")
				return nil
			}

			var confirmer cart.Confirmer = cart.ConfirmFunc(a.confirm)
			if yes {
				confirmer = cart.ConfirmFunc(alwaysYes)
			}
			if err := a.cart.Clear(cmd.Context(), confirmer); err != nil {
				return a.fail(cart.Message(err), err)
			}
			if a.cart.Empty() {
				fmt.Fprintln(a.out, "Cart cleared")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
