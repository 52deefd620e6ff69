package backend

import (
	"context"
	"errors"

	"fincontrol/internal/kv"
)

const probeKey = "readyz"

var ErrNotReady = errors.New("backend not ready")

// Probe writes, reads back and removes a scratch key. Stores swallow their
// own errors, so a round-trip is the only way to tell a healthy one apart.
func Probe(ctx context.Context, store kv.Store) error {
	if !store.Set(ctx, probeKey, true) {
		return errors.Join(ErrNotReady, errors.New("write failed"))
	}
	var ok bool
	if !kv.GetInto(ctx, store, probeKey, &ok) || !ok {
		return errors.Join(ErrNotReady, errors.New("read back failed"))
	}
	if !store.Remove(ctx, probeKey) {
		return errors.Join(ErrNotReady, errors.New("remove failed"))
	}
	return nil
}
