package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/cart-client/internal/checkout"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

var ErrNoKey = errors.New("payment gateway key is not configured")

type Options struct {
	Key          string
	ScriptURL    string
	ListenAddr   string
	ThemeColor   string
	PrefillEmail string
}

// Announcer is told where the payment page is being served so the user can
// open it.
type Announcer func(url string)

// Hosted runs the gateway's checkout dialog in the user's browser. It serves
// a local page that loads the gateway script and posts the dialog's result
// back to a callback endpoint.
type Hosted struct {
	opts     Options
	client   *http.Client
	announce Announcer
	log      logrus.FieldLogger

	mu     sync.Mutex
	loaded bool
}

func NewHosted(opts Options, client *http.Client, announce Announcer, log logrus.FieldLogger) *Hosted {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}
	return &Hosted{
		opts:     opts,
		client:   client,
		announce: announce,
		log:      log,
	}
}

// Load checks that the gateway script can be fetched. Success is remembered;
// a failure may be retried.
func (h *Hosted) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.ScriptURL, nil)
	if err != nil {
		return fmt.Errorf("build script request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", h.opts.ScriptURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", h.opts.ScriptURL, resp.StatusCode)
	}
	h.loaded = true
	h.log.WithField("script_url", h.opts.ScriptURL).Debug("gateway script available")
	return nil
}

// Open starts the callback server and announces the payment page. The
// session's channels are wired before the page is reachable.
func (h *Hosted) Open(_ context.Context, req domain.PaymentRequest) (checkout.Session, error) {
	if h.opts.Key == "" {
		return nil, ErrNoKey
	}

	ln, err := net.Listen("tcp", h.opts.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", h.opts.ListenAddr, err)
	}

	s := &session{
		id:        uuid.NewString(),
		succeeded: make(chan domain.PaymentConfirmation, 1),
		failed:    make(chan string, 1),
		dismissed: make(chan struct{}, 1),
		done:      make(chan struct{}),
		log:       h.log,
	}
	s.page = page{
		Key:          h.opts.Key,
		ScriptURL:    h.opts.ScriptURL,
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Name:         req.StoreName,
		Description:  req.Description,
		PrefillEmail: h.opts.PrefillEmail,
		ThemeColor:   h.opts.ThemeColor,
		Session:      s.id,
	}
	s.srv = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.WithError(err).Error("gateway callback server error")
		}
	}()

	url := "http://" + ln.Addr().String() + "/"
	h.log.WithField("url", url).Info("payment page ready")
	if h.announce != nil {
		h.announce(url)
	}
	return s, nil
}

// session is one served payment page. The first callback wins; later ones
// are refused.
type session struct {
	id   string
	page page
	srv  *http.Server
	log  logrus.FieldLogger

	succeeded chan domain.PaymentConfirmation
	failed    chan string
	dismissed chan struct{}
	done      chan struct{}

	once      sync.Once
	closeOnce sync.Once
	closeErr  error
}

func (s *session) Succeeded() <-chan domain.PaymentConfirmation { return s.succeeded }
func (s *session) Failed() <-chan string                        { return s.failed }
func (s *session) Dismissed() <-chan struct{}                   { return s.dismissed }

// Close shuts the callback server down and waits for it to exit.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeErr = s.srv.Shutdown(ctx)
		<-s.done
	})
	return s.closeErr
}

func (s *session) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/", s.servePage)
	r.Route("/callback", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/success", s.handleSuccess)
		r.Post("/failure", s.handleFailure)
		r.Post("/dismiss", s.handleDismiss)
	})
	return r
}

func (s *session) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("session") != s.id {
			http.Error(w, "unknown checkout session", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *session) handleSuccess(w http.ResponseWriter, r *http.Request) {
	conf := domain.PaymentConfirmation{
		PaymentID:      r.PostForm.Get("razorpay_payment_id"),
		GatewayOrderID: r.PostForm.Get("razorpay_order_id"),
		Signature:      r.PostForm.Get("razorpay_signature"),
	}
	if conf.PaymentID == "" {
		http.Error(w, "missing razorpay_payment_id", http.StatusBadRequest)
		return
	}
	s.deliver(w, func() { s.succeeded <- conf }, "Payment received. You can close this window.")
}

func (s *session) handleFailure(w http.ResponseWriter, r *http.Request) {
	desc := r.PostForm.Get("description")
	if desc == "" {
		desc = "unknown error"
	}
	s.deliver(w, func() { s.failed <- desc }, "Payment failed. You can close this window.")
}

func (s *session) handleDismiss(w http.ResponseWriter, _ *http.Request) {
	s.deliver(w, func() { s.dismissed <- struct{}{} }, "Checkout cancelled. You can close this window.")
}

func (s *session) deliver(w http.ResponseWriter, send func(), text string) {
	delivered := false
	s.once.Do(func() {
		send()
		delivered = true
	})
	if !delivered {
		http.Error(w, "checkout already completed", http.StatusConflict)
		return
	}
	s.renderDone(w, text)
}
