package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"fincontrol/internal/kv"
	"fincontrol/internal/log"
)

// Store keeps JSON values in process memory. Values are stored encoded so
// callers never share mutable state with the store.
type Store struct {
	mu     sync.Mutex
	items  map[string][]byte
	logger *log.Logger
}

func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		items:  make(map[string][]byte),
		logger: logger.WithComponent(log.ComponentKV),
	}
}

// NewFromFiles seeds the store from <base>/<key>.json for every known key.
// Missing or malformed files are skipped.
func NewFromFiles(base string, logger *log.Logger) *Store {
	s := New(logger)
	for _, key := range []string{kv.KeyIncomes, kv.KeyExpenses, kv.KeyTheme} {
		raw := readJSON(filepath.Join(base, key+".json"))
		if raw == nil {
			continue
		}
		s.items[key] = raw
		s.logger.Info("Seeded memory store", log.FieldKey, key, "bytes", len(raw))
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), v...), true
}

func (s *Store) Set(_ context.Context, key string, value any) bool {
	b, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to encode value", log.FieldKey, key, log.FieldOperation, log.OpSet, log.FieldError, err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = b
	return true
}

// SetMany implements kv.Batcher.
func (s *Store) SetMany(_ context.Context, values map[string]any) bool {
	encoded, err := kv.Encode(values)
	if err != nil {
		s.logger.Error("Failed to encode batch", log.FieldOperation, log.OpSet, log.FieldError, err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range encoded {
		s.items[k] = v
	}
	return true
}

func (s *Store) Remove(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return true
}

func (s *Store) Clear(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string][]byte)
	return true
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func readJSON(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return b
}
