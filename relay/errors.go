package relay

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid request")
var errMissingProviderCall = errors.New("provider call is required")

// FailureKind separates the provider refusing a message from never reaching it.
type FailureKind string

const (
	KindRejected  FailureKind = "provider_rejected"
	KindTransport FailureKind = "transport_failure"
)

// ProviderError is the terminal outcome of a failed send. Error returns the provider's description.
type ProviderError struct {
	Kind     FailureKind
	Provider string
	Code     int // provider error code or HTTP status, when the provider sent one
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil || e.Err == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Rejected marks err as an answer from the provider, e.g. invalid destination or bad credentials.
func Rejected(code int, err error) *ProviderError {
	return &ProviderError{Kind: KindRejected, Code: code, Err: err}
}

// Transport marks err as a failure to get an answer: network, timeout, undecodable response.
func Transport(err error) *ProviderError {
	return &ProviderError{Kind: KindTransport, Err: err}
}

// IsKind reports whether err carries a ProviderError of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

func invalidRequest(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
}
