package progression

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the engine, the store adapters and the HTTP layer.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStoreFailure        = errors.New("store failure")
)

// Kind classifies an error returned by the engine.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindInvalidInput
	KindInsufficientBalance
	KindStoreFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindStoreFailure:
		return "store_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err. Errors outside the taxonomy are store failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	default:
		return KindStoreFailure
	}
}

// storeError marks an unclassified failure as ErrStoreFailure while keeping
// the cause reachable through errors.Is/As.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *storeError) Unwrap() []error {
	return []error{ErrStoreFailure, e.err}
}

// classify passes domain errors through and wraps everything else.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindStoreFailure || errors.Is(err, ErrStoreFailure) {
		return err
	}
	return &storeError{op: op, err: err}
}

// Invalidf builds an ErrInvalidInput error with a message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
