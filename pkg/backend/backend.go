// Package backend defines the remote correction capability that the
// orchestrator escalates to, and the error taxonomy it uses to decide whether
// a failed call is worth retrying.
//
// Implementations must be safe for concurrent use and must honour ctx
// cancellation and deadlines.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/typeassist/pkg/provider/llm"
	"github.com/MrWong99/typeassist/pkg/types"
)

// ErrNoBackend is returned when a remote call is requested but no backend is
// configured.
var ErrNoBackend = errors.New("backend: no correction backend configured")

// Backend corrects a single chunk of text remotely.
type Backend interface {
	// Correct returns the corrected chunk. Errors should be (or wrap) a
	// [*Error]; unclassified errors are treated as transient.
	Correct(ctx context.Context, req types.BackendRequest) (string, error)
}

// Func adapts an ordinary function to the [Backend] interface.
type Func func(ctx context.Context, req types.BackendRequest) (string, error)

// Correct calls f(ctx, req).
func (f Func) Correct(ctx context.Context, req types.BackendRequest) (string, error) {
	return f(ctx, req)
}

// Kind tells the retry loop what to do with a failed call.
type Kind int

const (
	// Transient failures (rate limits, timeouts, server faults) may succeed on
	// a later attempt.
	Transient Kind = iota

	// Fatal failures (bad credentials, malformed requests) will not.
	Fatal
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified backend failure.
type Error struct {
	Kind Kind
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a transient failure.
func NewTransient(err error) *Error { return &Error{Kind: Transient, Err: err} }

// NewFatal wraps err as a fatal failure.
func NewFatal(err error) *Error { return &Error{Kind: Fatal, Err: err} }

// Classify attaches a [Kind] to err. Errors that already carry one are
// returned unchanged, as is context.Canceled so that callers still see the
// cancellation. The rules for everything else:
//
//   - context.DeadlineExceeded is transient;
//   - [*llm.StatusError] is transient for 408, 409, 429 and 5xx, fatal otherwise;
//   - anything unrecognised, network failures included, is transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransient(err)
	}
	var se *llm.StatusError
	if errors.As(err, &se) {
		if se.Temporary() {
			return NewTransient(err)
		}
		return NewFatal(err)
	}
	return NewTransient(err)
}

// KindOf returns the kind carried by err after classification. The second
// result is false for nil and for context.Canceled.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(Classify(err), &be) {
		return be.Kind, true
	}
	return 0, false
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Transient
}
