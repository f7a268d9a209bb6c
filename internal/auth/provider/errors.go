package provider

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned by the registry for unknown names.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ExchangeError wraps any failure of the authorization-code exchange:
// non-2xx token endpoint responses, network failures, timeouts.
type ExchangeError struct {
	Provider string
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: code exchange failed: %v", e.Provider, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// ProfileError wraps any failure to resolve provider credentials to a
// profile, including profiles missing a subject id.
type ProfileError struct {
	Provider string
	Err      error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("%s: profile fetch failed: %v", e.Provider, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }
