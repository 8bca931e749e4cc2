package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/currency"

	"github.com/fjod/go_cart/cart-client/internal/api"
	"github.com/fjod/go_cart/cart-client/internal/auth"
	"github.com/fjod/go_cart/cart-client/internal/cart"
	"github.com/fjod/go_cart/cart-client/internal/checkout"
	"github.com/fjod/go_cart/cart-client/internal/config"
	"github.com/fjod/go_cart/cart-client/internal/domain"
	"github.com/fjod/go_cart/cart-client/internal/gateway"
	"github.com/fjod/go_cart/cart-client/internal/logger"
)

// skipSetup marks commands that run without loading config or credentials.
const skipSetup = "skip-setup"

// app holds everything a command needs. It is built once per invocation in
// the root command's pre-run hook.
type app struct {
	cfgPath string
	verbose bool

	in  *bufio.Reader
	out io.Writer
	err io.Writer

	cfg      *config.Config
	currency currency.Unit
	log      *logrus.Logger
	guard    *auth.Guard
	client   *api.Client
	cart     *cart.Store

	// newGateway builds the payment gateway for checkout.
	newGateway func(gateway.Options, gateway.Announcer, logrus.FieldLogger) checkout.Gateway

	closers []func() error
}

type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewRootCommand builds the gymcart command tree.
func NewRootCommand(version string, streams Streams) *cobra.Command {
	return newApp(streams).rootCommand(version)
}

func newApp(streams Streams) *app {
	a := &app{
		in:  bufio.NewReader(streams.In),
		out: streams.Out,
		err: streams.Err,
	}
	a.newGateway = func(opts gateway.Options, announce gateway.Announcer, log logrus.FieldLogger) checkout.Gateway {
		return gateway.NewHosted(opts, nil, announce, log)
	}
	return a
}

func (a *app) rootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "gymcart",
		Short: "Cart and checkout client for the gym storefront",
		Long: `gymcart manages your storefront cart from the terminal.

Browse products, adjust your cart, pay through the hosted payment page and
look up past orders. Run 'gymcart config init' to create a config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			err := a.setup()
			if err != nil {
				if errClose := a.close(); errClose != nil {
					return errors.Join(err, errClose)
				}
			}
			return err
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.gymcart/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.cartCmd(),
		a.addCmd(),
		a.adjustCmd("inc", "Increase a cart line by one", +1),
		a.adjustCmd("dec", "Decrease a cart line by one, removing it below one", -1),
		a.removeCmd(),
		a.clearCmd(),
		a.checkoutCmd(),
		a.ordersCmd(),
		a.productsCmd(),
		a.configCmd(),
	)
	a.closeAfterRun(root)
	return root
}

// closeAfterRun releases setup resources when a command's RunE returns,
// whether or not it failed. cobra skips post-run hooks after an error.
func (a *app) closeAfterRun(cmd *cobra.Command) {
	for _, c := range cmd.Commands() {
		a.closeAfterRun(c)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if errClose := a.close(); errClose != nil {
				if err == nil {
					err = errClose
				} else if a.log != nil {
					a.log.WithError(errClose).Warn("failed to release resources")
				}
			}
		}()
		return run(cmd, args)
	}
}

// Execute runs gymcart with the process's stdio and signals.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(version, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errLoginNotice) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	a.currency, err = domain.ParseCurrency(cfg.Currency)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.log = logger.NewWithOutput(a.err, level, cfg.Log.Format)

	store, err := a.credentialStore()
	if err != nil {
		return err
	}
	a.guard = auth.NewGuard(store, cfg.Auth.TTL, a.log)
	a.guard.Subscribe(func(e auth.Event) {
		fmt.Fprintln(a.err, loginHint(e.Reason))
	})

	a.client = api.NewClient(api.Options{
		BaseURL:            cfg.API.BaseURL,
		Timeout:            cfg.API.Timeout,
		InsecureSkipVerify: cfg.API.InsecureSkipVerify,
		Breaker: api.BreakerSettings{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		},
	}, a.guard, a.log)
	a.cart = cart.NewStore(a.client, a.log)
	return nil
}

func (a *app) credentialStore() (auth.CredentialStore, error) {
	switch a.cfg.Auth.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Auth.RedisAddr})
		a.closers = append(a.closers, client.Close)
		return auth.NewRedisStore(client, a.cfg.Auth.RedisKey), nil
	case config.StoreFile:
		return auth.NewFileStore(a.cfg.Auth.TokenFile), nil
	default:
		return nil, fmt.Errorf("%w: unknown auth store %q", config.ErrInvalidConfig, a.cfg.Auth.Store)
	}
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loginHint(r auth.Reason) string {
	switch r {
	case auth.ReasonExpired:
		return "Your session has expired. Please login again with 'gymcart login'."
	case auth.ReasonRejected:
		return "Session expired. Please login again with 'gymcart login'."
	default:
		return "Please login to continue: run 'gymcart login'."
	}
}
