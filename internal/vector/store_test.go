package vector

import (
	"errors"
	"testing"

	"github.com/hyperjump/ragfeed/internal/models"
)

func testRecords() []*models.VectorRecord {
	return []*models.VectorRecord{
		{ID: 2, Embedding: []float32{0, 1}, Text: "dogs bark", Source: "b.txt", Category: "pets"},
		{ID: 0, Embedding: []float32{1, 0}, Text: "the cat sat", Source: "a.txt", Category: "pets"},
		{ID: 1, Embedding: []float32{0.6, 0.8}, Text: "stocks fell", Source: "c.txt", Category: "finance"},
	}
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 || s.Dimension() != 2 {
		t.Fatalf("Len=%d Dimension=%d", s.Len(), s.Dimension())
	}
	for i, r := range s.Records() {
		if int(r.ID) != i {
			t.Errorf("records not sorted: position %d has id %d", i, r.ID)
		}
	}
	r, ok := s.Record(1)
	if !ok || r.Text != "stocks fell" {
		t.Errorf("Record(1) = %+v, %v", r, ok)
	}
	if _, ok := s.Record(9); ok {
		t.Error("Record(9) should not exist")
	}
	if got := s.Categories(); len(got) != 2 || got[0] != "finance" || got[1] != "pets" {
		t.Errorf("Categories() = %v", got)
	}
}

func TestNewStore_Empty(t *testing.T) {
	s, err := NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || s.Dimension() != 0 {
		t.Errorf("Len=%d Dimension=%d", s.Len(), s.Dimension())
	}
}

func TestNewStore_Invalid(t *testing.T) {
	_, err := NewStore([]*models.VectorRecord{
		{ID: 0, Embedding: []float32{1, 0}},
		{ID: 1, Embedding: []float32{1, 0, 0}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	_, err = NewStore([]*models.VectorRecord{
		{ID: 3, Embedding: []float32{1}},
		{ID: 3, Embedding: []float32{1}},
	})
	if err == nil {
		t.Error("expected duplicate id error")
	}
	_, err = NewStore([]*models.VectorRecord{
		{ID: 0, Embedding: []float32{1}, Category: "pets"},
		{ID: 1 << 32, Embedding: []float32{1}, Category: "finance"},
	})
	if err == nil {
		t.Error("expected out of range error for an id that does not fit the filter bitmaps")
	}
}

func TestStore_Filter(t *testing.T) {
	s, err := NewStore(testRecords())
	if err != nil {
		t.Fatal(err)
	}
	if s.Filter(nil, nil) != nil {
		t.Error("no filters should return nil")
	}
	pets := s.Filter([]string{"pets"}, nil)
	if pets.GetCardinality() != 2 || !pets.Contains(0) || !pets.Contains(2) {
		t.Errorf("pets filter = %v", pets.ToArray())
	}
	both := s.Filter([]string{"pets"}, []string{"a.txt", "c.txt"})
	if both.GetCardinality() != 1 || !both.Contains(0) {
		t.Errorf("combined filter = %v", both.ToArray())
	}
	none := s.Filter([]string{"unknown"}, nil)
	if !none.IsEmpty() {
		t.Errorf("unknown category should match nothing, got %v", none.ToArray())
	}
}
