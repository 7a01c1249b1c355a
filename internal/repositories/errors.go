package repositories

import (
	"context"
	"errors"

	"proximity-sync/internal/faults"
	"proximity-sync/internal/store"
)

// Classify folds raw store failures into the engine's error taxonomy.
// Already-classified faults pass through untouched; everything else is a
// transient store failure and eligible for caller-driven retry.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var f *faults.Fault
	if errors.As(err, &f) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.Wrap(err, faults.TransientStore, "%s timed out", op)
	}
	if errors.Is(err, store.ErrTxConflict) {
		return faults.Wrap(err, faults.TransientStore, "%s lost a concurrent update", op)
	}
	return faults.Wrap(err, faults.TransientStore, "%s failed against the store", op)
}
