package vector

import (
	"errors"
	"testing"

	"github.com/hyperjump/ragfeed/internal/models"
)

func TestLoader_ReloadsAfterRebuild(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)
	if _, err := l.Get(); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound before build, got %v", err)
	}

	if _, err := Write(dir, []*models.VectorRecord{{ID: 0, Embedding: []float32{1, 0}, Text: "one"}}); err != nil {
		t.Fatal(err)
	}
	first, err := l.Get()
	if err != nil {
		t.Fatal(err)
	}
	again, err := l.Get()
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Error("unchanged artifacts should return the cached snapshot")
	}

	if _, err := Write(dir, []*models.VectorRecord{
		{ID: 0, Embedding: []float32{1, 0}, Text: "one"},
		{ID: 1, Embedding: []float32{0, 1}, Text: "two"},
	}); err != nil {
		t.Fatal(err)
	}
	second, err := l.Get()
	if err != nil {
		t.Fatal(err)
	}
	if second.Len() != 2 {
		t.Errorf("reloaded store Len() = %d, want 2", second.Len())
	}
	if first.Len() != 1 {
		t.Error("earlier snapshot must stay unchanged")
	}
}
