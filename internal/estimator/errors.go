package estimator

import (
	"errors"
	"fmt"
)

// Kind classifies why a premium request was rejected.
type Kind int

const (
	KindInvalidInput              Kind = iota + 1 // bad spot, strike, side or calendar date
	KindInvalidExpiry                             // expiry not after the valuation instant
	KindVolatilityNotFound                        // no matching contract or usable IV upstream
	KindMalformedManualVolatility                 // manual IV unparsable or not positive
	KindUpstreamProviderFailure                   // provider missing or failed
)

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrInvalidInput              = errors.New("invalid input")
	ErrInvalidExpiry             = errors.New("expiration must be in the future")
	ErrVolatilityNotFound        = errors.New("option not found")
	ErrMalformedManualVolatility = errors.New("malformed manual volatility")
	ErrUpstreamProviderFailure   = errors.New("market data provider failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindInvalidExpiry:
		return ErrInvalidExpiry
	case KindVolatilityNotFound:
		return ErrVolatilityNotFound
	case KindMalformedManualVolatility:
		return ErrMalformedManualVolatility
	case KindUpstreamProviderFailure:
		return ErrUpstreamProviderFailure
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidExpiry:
		return "invalid_expiry"
	case KindVolatilityNotFound:
		return "volatility_not_found"
	case KindMalformedManualVolatility:
		return "malformed_manual_volatility"
	case KindUpstreamProviderFailure:
		return "upstream_provider_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a rejected premium request. errors.Is matches it against the
// sentinel of its Kind as well as the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
