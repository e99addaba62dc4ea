package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "recordings/a.wav", strings.NewReader("RIFF data"), "audio/wav"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, err := s.Get(ctx, "recordings/a.wav")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "RIFF data" {
		t.Errorf("content = %q", data)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", strings.NewReader("v"), ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
