package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized wraps every 401 response. The credential has already been
	// dropped by the time the caller sees it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("api temporarily unavailable")
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// IsTransient reports whether err is worth a manual retry: network trouble,
// an open breaker or a server-side failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrUnauthorized)
}

// ServerMessage returns the message the API attached to a failed call, if any.
func ServerMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
