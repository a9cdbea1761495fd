package blobstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRoundtrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Store(ctx, "v1", []byte("data")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := m.Fetch(ctx, "v1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "data" {
		t.Fatalf("Fetch = %q, want %q", got, "data")
	}
	if err := m.Store(ctx, "v1", []byte("other")); !errors.Is(err, ErrExists) {
		t.Fatalf("Store dup = %v, want ErrExists", err)
	}
}

func TestMemoryDrop(t *testing.T) {
	m := NewMemory()
	_ = m.Store(context.Background(), "v1", []byte("data"))
	m.Drop("v1")
	if _, err := m.Fetch(context.Background(), "v1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch = %v, want ErrNotFound", err)
	}
}

func TestMemoryCorrupt(t *testing.T) {
	m := NewMemory()
	_ = m.Store(context.Background(), "v1", []byte("data"))
	m.Corrupt("v1", []byte("garbage"))
	if _, err := m.Fetch(context.Background(), "v1"); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Fetch = %v, want ErrCorrupted", err)
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	a := Digest([]byte("payload"))
	b := Digest([]byte("payload"))
	if a != b {
		t.Fatalf("Digest no es determinista: %s != %s", a, b)
	}
	if a == Digest([]byte("other")) {
		t.Fatal("Digest colisiona para contenidos distintos")
	}
}
