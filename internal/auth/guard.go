package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrLoginRequired means no usable credential exists; the caller must send the
// user to the login entry point. No network call is made after it.
var ErrLoginRequired = errors.New("login required")

type Reason string

const (
	ReasonMissing  Reason = "missing"
	ReasonExpired  Reason = "expired"
	ReasonRejected Reason = "rejected"
)

// Event is published every time the credential becomes unusable.
type Event struct {
	Reason Reason
}

// TokenIssuer exchanges user credentials for a bearer token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, email, password string) (string, error)
}

// Guard is the single owner of the stored credential: it hands the token to
// outgoing requests, drops it when it is missing, expired or rejected by the
// API, and notifies subscribers so they can redirect to login.
type Guard struct {
	store CredentialStore
	ttl   time.Duration
	log   logrus.FieldLogger
	now   func() time.Time

	mu          sync.Mutex
	subscribers []func(Event)
}

func NewGuard(store CredentialStore, ttl time.Duration, log logrus.FieldLogger) *Guard {
	return &Guard{
		store: store,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Subscribe registers fn for credential-invalidated events. fn runs
// synchronously and must not call back into the Guard.
func (g *Guard) Subscribe(fn func(Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}

// Token returns the bearer token for the next request.
func (g *Guard) Token(ctx context.Context) (string, error) {
	cred, err := g.store.Get(ctx)
	if errors.Is(err, ErrNoCredential) {
		g.publish(Event{Reason: ReasonMissing})
		return "", ErrLoginRequired
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}

	now := g.now()
	expired := cred.Expired(now)
	if !expired {
		if claims, err := ParseClaims(cred.Token); err == nil && !claims.ExpiresAt.IsZero() {
			expired = !now.Before(claims.ExpiresAt)
		}
	}
	if expired {
		if err := g.store.Clear(ctx); err != nil {
			g.log.Warnf("failed to clear expired credential: %v", err)
		}
		g.publish(Event{Reason: ReasonExpired})
		return "", ErrLoginRequired
	}

	return cred.Token, nil
}

// Reject handles a 401 for a request sent with token. The stored credential is
// cleared only if it is still that token, so a late 401 from an old session
// cannot wipe a fresh login.
func (g *Guard) Reject(ctx context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Get(ctx)
	if err != nil || cred.Token != token {
		return
	}
	if err := g.store.Clear(ctx); err != nil {
		g.log.Warnf("failed to clear rejected credential: %v", err)
	}
	g.log.Info("credential rejected by API, login required")
	g.publishLocked(Event{Reason: ReasonRejected})
}

// Login exchanges email and password for a token and stores it for the
// configured lifetime.
func (g *Guard) Login(ctx context.Context, issuer TokenIssuer, email, password string) (Claims, error) {
	token, err := issuer.IssueToken(ctx, email, password)
	if err != nil {
		return Claims{}, err
	}
	if token == "" {
		return Claims{}, errors.New("login response carried no token")
	}

	cred := Credential{Token: token, ExpiresAt: g.now().Add(g.ttl)}
	claims, err := ParseClaims(token)
	if err != nil {
		g.log.Debugf("token is not a readable JWT: %v", err)
	} else if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(cred.ExpiresAt) {
		cred.ExpiresAt = claims.ExpiresAt
	}

	if err := g.store.Set(ctx, cred); err != nil {
		return Claims{}, fmt.Errorf("store credential: %w", err)
	}
	return claims, nil
}

func (g *Guard) Logout(ctx context.Context) error {
	return g.store.Clear(ctx)
}

// Whoami returns the claims of the stored token without touching the network.
func (g *Guard) Whoami(ctx context.Context) (Claims, error) {
	token, err := g.Token(ctx)
	if err != nil {
		return Claims{}, err
	}
	return ParseClaims(token)
}

func (g *Guard) publish(e Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publishLocked(e)
}

func (g *Guard) publishLocked(e Event) {
	for _, fn := range g.subscribers {
		fn(e)
	}
}
