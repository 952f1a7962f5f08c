package protoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("remote: entry not found")
	ErrAlreadyExists      = errors.New("remote: entry already exists")
	ErrUnauthorized       = errors.New("remote: unauthorized")
	ErrPreconditionFailed = errors.New("remote: precondition failed")
	ErrQuotaExceeded      = errors.New("remote: quota exceeded")
	ErrNetworkUnreachable = errors.New("remote: network unreachable")
	ErrUnexpectedStatus   = errors.New("remote: unexpected status")
	ErrAccountNotFound    = errors.New("client: account not registered")

	ErrClientConfigInvalid = func(expected string) error {
		return fmt.Errorf("client: config invalid, expected %s", expected)
	}
)

// StatusError maps an HTTP status of operation op to the remote error
// taxonomy, nil for 2xx.
func StatusError(op string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case code == http.StatusNotFound, code == http.StatusGone:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case code == http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w", op, ErrPreconditionFailed)
	case code == http.StatusRequestEntityTooLarge, code == http.StatusInsufficientStorage:
		return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout, code == http.StatusRequestTimeout:
		return fmt.Errorf("%s: %w (status %d)", op, ErrNetworkUnreachable, code)
	default:
		return fmt.Errorf("%s: %w %d", op, ErrUnexpectedStatus, code)
	}
}

// TransportError wraps a failure that happened before any HTTP status was
// received (dial, TLS, timeout, reset) as ErrNetworkUnreachable. Context
// cancellation is returned unchanged.
func TransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrNetworkUnreachable, err))
}
