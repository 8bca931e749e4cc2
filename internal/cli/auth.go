package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with your storefront account.

The password is read from --password, then GYMCART_PASSWORD, then prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				password = os.Getenv("GYMCART_PASSWORD")
			}
			if password == "" {
				if password, err = a.prompt("Password: "); err != nil {
					return err
				}
			}

			claims, err := a.guard.Login(cmd.Context(), a.client, email, password)
			if err != nil {
				var se *api.StatusError
				if errors.As(err, &se) && se.Code < 500 {
					return &userError{msg: "Invalid email or password", cause: err}
				}
				return &userError{msg: "Login failed. Please try again.", cause: err}
			}

			who := claims.Email
			if who == "" {
				who = email
			}
			if claims.Role != "" {
				fmt.Fprintf(a.out, "Logged in as %s (%s)\n", who, claims.Role)
			} else {
				fmt.Fprintf(a.out, "Logged in as %s\n", who)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.guard.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the stored token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			claims, err := a.guard.Whoami(cmd.Context())
			if err != nil {
				if errors.Is(err, auth.ErrLoginRequired) {
					return errLoginNotice
				}
				return fmt.Errorf("read token: %w", err)
			}

			tw := newTable(a.out, "FIELD", "VALUE")
			tw.row("user id", claims.UserID)
			tw.row("email", claims.Email)
			tw.row("role", claims.Role)
			if !claims.ExpiresAt.IsZero() {
				tw.row("expires", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			tw.row("staff access", fmt.Sprint(claims.HasStaffAccess()))
			tw.flush()
			return nil
		},
	}
}
