package store

import (
	"context"
	"testing"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "beststreak:default")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "beststreak:default", "7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := s.Get(ctx, "beststreak:default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "7" {
		t.Errorf("expected value 7, got %s", value)
	}

	// overwrite
	if err := s.Set(ctx, "beststreak:default", "12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err = s.Get(ctx, "beststreak:default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "12" {
		t.Errorf("expected value 12, got %s", value)
	}
}

func TestBestStreakKey(t *testing.T) {
	if got := BestStreakKey("default"); got != "beststreak:default" {
		t.Errorf("unexpected key: %s", got)
	}
}
