// Package kv defines the persistent key-value boundary of the ledger.
//
// Implementations never return errors: any failure of the underlying medium
// (quota, corruption, serialization, network) is logged and reported as a
// false or absent result, so callers are isolated from storage specifics.
package kv

import (
	"context"
	"encoding/json"
)

// Persisted storage keys.
const (
	KeyIncomes  = "incomes"
	KeyExpenses = "expenses"
	KeyTheme    = "theme"
)

// Store is a durable string-keyed store of JSON values.
type Store interface {
	// Get returns the raw JSON stored under key, or false if absent or unreadable.
	Get(ctx context.Context, key string) (json.RawMessage, bool)

	// Set JSON-encodes value and stores it under key.
	Set(ctx context.Context, key string, value any) bool

	// Remove deletes key. Removing a missing key succeeds.
	Remove(ctx context.Context, key string) bool

	// Clear deletes every key owned by the store.
	Clear(ctx context.Context) bool
}

// Batcher is implemented by stores that can write several keys at once,
// either all of them or none.
type Batcher interface {
	SetMany(ctx context.Context, values map[string]any) bool
}

// GetInto decodes the value under key into dst. It returns false when the
// key is absent or the stored JSON does not fit dst.
func GetInto(ctx context.Context, s Store, key string, dst any) bool {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Encode marshals every value of a batch up front so a serialization error
// aborts the whole batch before anything is written.
func Encode(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return out, nil
}
