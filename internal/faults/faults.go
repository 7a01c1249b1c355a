package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. Only TransientStore is eligible for
// caller-driven retry; the state-violating kinds must never be retried.
type Kind int

const (
	Unknown Kind = iota
	Conflict
	InvalidState
	InvalidTarget
	NotFound
	TransientStore
)

func (k Kind) String() string {
	switch k {
	case Conflict:
		return "conflict"
	case InvalidState:
		return "invalid_state"
	case InvalidTarget:
		return "invalid_target"
	case NotFound:
		return "not_found"
	case TransientStore:
		return "transient_store"
	default:
		return "unknown"
	}
}

// Fault carries a classification and a human-readable reason. The engine
// returns Faults for every expected failure condition instead of panicking
// or throwing; the presentation layer decides how to render Reason.
type Fault struct {
	Kind   Kind
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Fault) Unwrap() error { return f.Err }

// New builds a Fault with a formatted reason.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification to an underlying error.
func Wrap(err error, kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return Is(err, TransientStore)
}

// Reason returns the human-readable reason string, or the raw error text
// for unclassified errors.
func Reason(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
