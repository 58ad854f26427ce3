package search

import (
	"errors"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/vector"
)

func unit(x float64, rest int) []float32 {
	v := make([]float32, 3)
	v[0] = float32(x)
	v[rest] = float32(math.Sqrt(1 - x*x))
	return v
}

// scenarioStore has raw similarities 0.9, 0.85 and 0.2 against the query [1,0,0].
func scenarioStore(t *testing.T) *vector.Store {
	t.Helper()
	s, err := vector.NewStore([]*models.VectorRecord{
		{ID: 0, Embedding: unit(0.9, 1), Text: "zero", Category: "a", Source: "x.txt"},
		{ID: 1, Embedding: unit(0.85, 1), Text: "one", Category: "a", Source: "y.txt"},
		{ID: 2, Embedding: unit(0.2, 2), Text: "two", Category: "b", Source: "y.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func ids(results []*models.RetrievalResult) []models.ChunkID {
	out := make([]models.ChunkID, len(results))
	for i, r := range results {
		out[i] = r.ChunkID
	}
	return out
}

func equalIDs(a, b []models.ChunkID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRetrieve_FeedbackReordersResults(t *testing.T) {
	store := scenarioStore(t)
	query := []float32{1, 0, 0}

	got, err := Retrieve(query, store, nil, 2, 0.15, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []models.ChunkID{0, 1}; !equalIDs(ids(got), want) {
		t.Errorf("without feedback got %v, want %v", ids(got), want)
	}

	scores := models.FeedbackScores{1: -4, 2: 10}
	got, err = Retrieve(query, store, scores, 2, 0.15, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []models.ChunkID{2, 0}; !equalIDs(ids(got), want) {
		t.Fatalf("with feedback got %v, want %v", ids(got), want)
	}
	top := got[0]
	if top.Text != "two" || top.Feedback != 10 || top.Rank != 1 {
		t.Errorf("top result = %+v", top)
	}
	if math.Abs(top.Similarity-0.2) > 1e-6 || math.Abs(top.Score-1.7) > 1e-6 {
		t.Errorf("similarity=%v score=%v", top.Similarity, top.Score)
	}
}

func TestRetrieve_ZeroWeightIgnoresFeedback(t *testing.T) {
	got, err := Retrieve([]float32{1, 0, 0}, scenarioStore(t), models.FeedbackScores{2: 100}, 3, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []models.ChunkID{0, 1, 2}; !equalIDs(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestRetrieve_NormalizesQuery(t *testing.T) {
	a, err := Retrieve([]float32{1, 0, 0}, scenarioStore(t), nil, 3, 0.15, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Retrieve([]float32{42, 0, 0}, scenarioStore(t), nil, 3, 0.15, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].ChunkID != b[i].ChunkID || math.Abs(a[i].Score-b[i].Score) > 1e-9 {
			t.Errorf("rank %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRetrieve_TieBreakByChunkID(t *testing.T) {
	store, err := vector.NewStore([]*models.VectorRecord{
		{ID: 5, Embedding: []float32{1, 0}},
		{ID: 2, Embedding: []float32{1, 0}},
		{ID: 9, Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := Retrieve([]float32{1, 0}, store, nil, 3, 0.15, nil)
		if err != nil {
			t.Fatal(err)
		}
		if want := []models.ChunkID{2, 5, 9}; !equalIDs(ids(got), want) {
			t.Fatalf("got %v, want %v", ids(got), want)
		}
	}
}

func TestRetrieve_ResultBound(t *testing.T) {
	store := scenarioStore(t)
	for _, tt := range []struct{ k, want int }{{-1, 0}, {0, 0}, {1, 1}, {3, 3}, {10, 3}} {
		got, err := Retrieve([]float32{1, 0, 0}, store, nil, tt.k, 0.15, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("k=%d: got %d results, want %d", tt.k, len(got), tt.want)
		}
	}
}

func TestRetrieve_Errors(t *testing.T) {
	var de *vector.DegenerateVectorError
	if _, err := Retrieve([]float32{0, 0, 0}, scenarioStore(t), nil, 1, 0.15, nil); !errors.As(err, &de) {
		t.Errorf("zero query: expected DegenerateVectorError, got %v", err)
	}
	if _, err := Retrieve([]float32{float32(math.NaN()), 1, 0}, scenarioStore(t), nil, 1, 0.15, nil); !errors.As(err, &de) {
		t.Errorf("NaN query: expected DegenerateVectorError, got %v", err)
	}
	if _, err := Retrieve([]float32{1, 0}, scenarioStore(t), nil, 1, 0.15, nil); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	empty, err := vector.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Retrieve([]float32{1, 0}, empty, nil, 3, 0.15, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v; want empty result", got, err)
	}
}

func TestRetrieve_AllowSet(t *testing.T) {
	got, err := Retrieve([]float32{1, 0, 0}, scenarioStore(t), nil, 3, 0.15, roaring.BitmapOf(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if want := []models.ChunkID{1, 2}; !equalIDs(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestRetrieve_FeedbackMonotonic(t *testing.T) {
	store := scenarioStore(t)
	rankOf := func(scores models.FeedbackScores) int {
		got, err := Retrieve([]float32{1, 0, 0}, store, scores, 3, 0.15, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range got {
			if r.ChunkID == 2 {
				return r.Rank
			}
		}
		return 0
	}
	prev := rankOf(nil)
	for score := 1; score <= 10; score++ {
		r := rankOf(models.FeedbackScores{2: score})
		if r > prev {
			t.Fatalf("helpful feedback lowered rank: %d -> %d at score %d", prev, r, score)
		}
		prev = r
	}
}
