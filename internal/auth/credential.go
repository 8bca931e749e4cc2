package auth

import (
	"context"
	"errors"
	"time"
)

// Credential is the bearer token plus the moment the client stops trusting it
// (the cookie lifetime of the web client).
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CredentialStore is the only place the bearer token lives. The Guard is its
// sole writer.
type CredentialStore interface {
	Get(ctx context.Context) (Credential, error)
	Set(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

var ErrNoCredential = errors.New("no credential stored")
