package vector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/ragfeed/internal/models"
)

func TestWriteLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	emb, err := Normalize([]float32{0.3, 0.4, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	records := []*models.VectorRecord{
		{ID: 0, Embedding: emb, Text: "the cat sat", Source: "a.txt", Category: "pets"},
	}
	gen, err := Write(dir, records)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Generation() != gen {
		t.Errorf("Generation() = %s, want %s", s.Generation(), gen)
	}
	r, ok := s.Record(0)
	if !ok {
		t.Fatal("record 0 missing")
	}
	if r.Text != "the cat sat" || r.Source != "a.txt" || r.Category != "pets" {
		t.Errorf("metadata = %+v", r)
	}
	if !IsNormalized(r.Embedding) {
		t.Errorf("loaded embedding norm = %v", L2Norm(r.Embedding))
	}
	for i := range emb {
		if r.Embedding[i] != emb[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, r.Embedding[i], emb[i])
		}
	}
}

func TestWrite_KeepsPreviousGenerationOnly(t *testing.T) {
	dir := t.TempDir()
	rec := []*models.VectorRecord{{ID: 0, Embedding: []float32{1, 0}}}
	var gens []string
	for i := 0; i < 3; i++ {
		gen, err := Write(dir, rec)
		if err != nil {
			t.Fatal(err)
		}
		gens = append(gens, gen)
	}
	existing, err := Generations(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(existing) != 2 {
		t.Fatalf("generations on disk = %v, want 2", existing)
	}
	if _, err := os.Stat(filepath.Join(dir, gens[0])); !os.IsNotExist(err) {
		t.Errorf("oldest generation should be pruned")
	}
	target, err := os.Readlink(filepath.Join(dir, CurrentLink))
	if err != nil {
		t.Fatal(err)
	}
	if target != gens[2] {
		t.Errorf("current -> %s, want %s", target, gens[2])
	}
}

func TestLoad_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, nil); err != nil {
		t.Fatal(err)
	}
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func writeFlat(t *testing.T, dir, embeddings, metadata string) {
	t.Helper()
	if embeddings != "" {
		if err := os.WriteFile(filepath.Join(dir, EmbeddingsFile), []byte(embeddings), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if metadata != "" {
		if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte(metadata), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad_FlatLayout(t *testing.T) {
	dir := t.TempDir()
	writeFlat(t, dir,
		`{"0": [1, 0], "1": [0, 1], "10": [0.6, 0.8]}`,
		`{"0": {"text": "a", "source": "x.txt", "category": "c"}, "1": {"text": "b", "source": "x.txt", "category": "c"}, "10": {"text": "k", "source": "y.txt", "category": "d"}}`)
	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 || s.Generation() != "" {
		t.Errorf("Len=%d Generation=%q", s.Len(), s.Generation())
	}
	if last := s.Records()[2]; last.ID != 10 || last.Text != "k" {
		t.Errorf("records should be ordered numerically, last = %+v", last)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name       string
		embeddings string
		metadata   string
		want       error
	}{
		{"missing embeddings", "", `{}`, ErrStoreNotFound},
		{"missing metadata", `{}`, "", ErrStoreNotFound},
		{"invalid json", `{"0": [1, 0`, `{}`, ErrStoreCorrupt},
		{"non-integer key", `{"a": [1, 0]}`, `{"a": {"text": "x"}}`, ErrStoreCorrupt},
		{"negative key", `{"-1": [1, 0]}`, `{"-1": {"text": "x"}}`, ErrStoreCorrupt},
		{"key beyond 32 bits", `{"0": [1, 0], "4294967296": [0, 1]}`, `{"0": {"text": "x"}, "4294967296": {"text": "y"}}`, ErrStoreCorrupt},
		{"id sets differ", `{"0": [1, 0]}`, `{"1": {"text": "x"}}`, ErrStoreCorrupt},
		{"count differs", `{"0": [1, 0]}`, `{"0": {"text": "x"}, "1": {"text": "y"}}`, ErrStoreCorrupt},
		{"dimension differs", `{"0": [1, 0], "1": [1, 0, 0]}`, `{"0": {"text": "x"}, "1": {"text": "y"}}`, ErrStoreCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFlat(t, dir, tt.embeddings, tt.metadata)
			_, err := Load(dir)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load() error = %v, want %v", err, tt.want)
			}
			if tt.want == ErrStoreCorrupt {
				var ce *CorruptError
				if !errors.As(err, &ce) || ce.Reason == "" {
					t.Errorf("expected CorruptError with reason, got %v", err)
				}
			}
		})
	}
}

func TestLoad_NoStore(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}
