package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 4 << 20 // 4MB

// Authenticator supplies bearer tokens and is told when the API rejects one.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
	Reject(ctx context.Context, token string)
}

type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

type Options struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Breaker            BreakerSettings
	// Transport replaces the default transport; the otel wrapper is applied on
	// top of it.
	Transport http.RoundTripper
}

// Client talks to the storefront REST API. Every authenticated call takes its
// token from the Authenticator and reports 401s back to it.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authenticator
	cb      *gobreaker.CircuitBreaker[*response]
	log     logrus.FieldLogger
}

type response struct {
	status int
	body   []byte
}

// envelope is the wrapper every endpoint answers with.
type envelope struct {
	Data          json.RawMessage `json:"data"`
	StatusMessage string          `json:"statusMessage"`
	Message       string          `json:"message"`
}

func NewClient(opts Options, auth Authenticator, log logrus.FieldLogger) *Client {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev API uses a self-signed certificate
		}
		base = t
	}

	st := gobreaker.Settings{
		Name:        "StorefrontAPI",
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= opts.Breaker.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= opts.Breaker.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("CircuitBreaker[%s] state changed from %s to %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		auth: auth,
		cb:   gobreaker.NewCircuitBreaker[*response](st),
		log:  log,
	}
}

// do sends one request. With authed set, a missing credential aborts before
// any I/O and a 401 is reported to the Authenticator.
func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var token string
	if authed {
		var err error
		token, err = c.auth.Token(ctx)
		if err != nil {
			return err
		}
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	requestID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"http.req.method": method,
		"http.req.path":   path,
		"http.req.id":     requestID,
	})
	start := time.Now()

	resp, err := c.cb.Execute(func() (*response, error) {
		return c.roundTrip(ctx, method, path, token, requestID, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn("request refused by circuit breaker")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		log.WithError(err).Debug("request failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"http.resp.status":  resp.status,
		"http.resp.took_ms": time.Since(start).Milliseconds(),
	}).Debug("request complete")

	if resp.status == http.StatusUnauthorized {
		if authed {
			c.auth.Reject(ctx, token)
		}
		return &StatusError{Code: resp.status, Message: messageOf(resp.body)}
	}
	if resp.status < 200 || resp.status > 299 {
		return &StatusError{Code: resp.status, Message: messageOf(resp.body)}
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// roundTrip performs the HTTP exchange. Server errors are returned as errors
// so the breaker counts them; everything else is a response.
func (c *Client) roundTrip(ctx context.Context, method, path, token, requestID string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, body: data}
	if resp.status >= http.StatusInternalServerError {
		return resp, &StatusError{Code: resp.status, Message: messageOf(data)}
	}
	return resp, nil
}

func messageOf(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return strings.TrimSpace(string(body))
	}
	if env.StatusMessage != "" {
		return env.StatusMessage
	}
	return env.Message
}
