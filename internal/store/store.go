package store

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing document.
var ErrNotFound = errors.New("document not found")

// ErrTxConflict reports that a conditional transaction lost a race with a
// concurrent writer. Callers may retry.
var ErrTxConflict = errors.New("transaction conflict")

// Event is a change notification for a single document path. Data is nil
// when Deleted is set.
type Event struct {
	Path    string `json:"path"`
	Data    []byte `json:"data,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Watch is a standing push subscription on a path prefix.
type Watch interface {
	C() <-chan Event
	Cancel()
}

// Tx is the view a transaction function operates on. Reads observe the
// committed state; writes are staged and become visible only when the
// function returns nil and the conditional commit succeeds.
type Tx interface {
	Get(path string) ([]byte, error)
	Set(path string, data []byte)
	Delete(path string)
}

// Store is the contract this engine requires from the remote document
// store: per-document last-write-wins upserts, conditional multi-document
// transactions and push-based change subscriptions.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Subscribe(ctx context.Context, prefix string) (Watch, error)
}
