// Package settings stores user preferences that are not part of the ledger.
package settings

import (
	"context"
	"fmt"

	"fincontrol/internal/core"
	"fincontrol/internal/kv"
	"fincontrol/internal/log"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == Light || t == Dark
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

type Store struct {
	kv     kv.Store
	logger *log.Logger
}

func New(store kv.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{kv: store, logger: logger.WithComponent(log.ComponentSettings)}
}

// Theme returns the stored theme, or Light when unset or unrecognised.
func (s *Store) Theme(ctx context.Context) Theme {
	var t Theme
	if !kv.GetInto(ctx, s.kv, kv.KeyTheme, &t) || !t.Valid() {
		return Light
	}
	return t
}

func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	if !s.kv.Set(ctx, kv.KeyTheme, t) {
		return fmt.Errorf("save theme: %w", core.ErrWriteFailed)
	}
	s.logger.InfoContext(ctx, "Theme changed", "theme", t)
	return nil
}

// ToggleTheme flips and persists the theme. On a failed write the returned
// theme is the one that would have been stored.
func (s *Store) ToggleTheme(ctx context.Context) (Theme, error) {
	next := s.Theme(ctx).Opposite()
	return next, s.SetTheme(ctx, next)
}
