package settings

import (
	"context"
	"errors"
	"testing"

	"fincontrol/internal/core"
	"fincontrol/internal/kv"
	"fincontrol/internal/kv/memory"
)

type readOnlyKV struct{ *memory.Store }

func (readOnlyKV) Set(context.Context, string, any) bool { return false }

func TestThemeDefaultsToLight(t *testing.T) {
	ctx := context.Background()
	backing := memory.New(nil)
	s := New(backing, nil)

	if got := s.Theme(ctx); got != Light {
		t.Fatalf("unset theme = %q", got)
	}
	backing.Set(ctx, kv.KeyTheme, "sepia")
	if got := s.Theme(ctx); got != Light {
		t.Fatalf("unknown theme = %q", got)
	}
}

func TestToggleTheme(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(nil), nil)

	for _, want := range []Theme{Dark, Light, Dark} {
		got, err := s.ToggleTheme(ctx)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if got != want || s.Theme(ctx) != want {
			t.Fatalf("toggle = %q, stored %q, want %q", got, s.Theme(ctx), want)
		}
	}
}

func TestSetTheme(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(nil), nil)

	if err := s.SetTheme(ctx, "blue"); err == nil {
		t.Fatalf("expected invalid theme error")
	}
	if err := s.SetTheme(ctx, Dark); err != nil || s.Theme(ctx) != Dark {
		t.Fatalf("set dark: %v", err)
	}
}

func TestToggleWriteFailure(t *testing.T) {
	s := New(readOnlyKV{memory.New(nil)}, nil)
	got, err := s.ToggleTheme(context.Background())
	if !errors.Is(err, core.ErrWriteFailed) {
		t.Fatalf("err = %v", err)
	}
	if got != Dark {
		t.Fatalf("got %q", got)
	}
	if s.Theme(context.Background()) != Light {
		t.Fatalf("theme should be unchanged")
	}
}
