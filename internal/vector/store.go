package vector

import (
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hyperjump/ragfeed/internal/models"
)

// Store is an immutable snapshot of vector records ordered by ascending chunk ID.
// Every record's embedding has the same length, Dimension.
type Store struct {
	dimension  int
	generation string
	records    []*models.VectorRecord
	byCategory map[string]*roaring.Bitmap
	bySource   map[string]*roaring.Bitmap
}

// NewStore builds a store from records. Records are sorted by ID; duplicate IDs and
// embeddings whose length differs from the lowest-ID record are rejected.
func NewStore(records []*models.VectorRecord) (*Store, error) {
	sorted := make([]*models.VectorRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s := &Store{
		records:    sorted,
		byCategory: make(map[string]*roaring.Bitmap),
		bySource:   make(map[string]*roaring.Bitmap),
	}
	for i, r := range sorted {
		if r.ID < 0 || uint64(r.ID) > math.MaxUint32 {
			return nil, fmt.Errorf("chunk id %d out of range", r.ID)
		}
		if i == 0 {
			s.dimension = len(r.Embedding)
		} else if sorted[i-1].ID == r.ID {
			return nil, fmt.Errorf("duplicate chunk id %d", r.ID)
		}
		if len(r.Embedding) != s.dimension {
			return nil, fmt.Errorf("chunk %d: %w: got %d, expected %d", r.ID, ErrDimensionMismatch, len(r.Embedding), s.dimension)
		}
		addToIndex(s.byCategory, r.Category, r.ID)
		addToIndex(s.bySource, r.Source, r.ID)
	}
	return s, nil
}

func addToIndex(idx map[string]*roaring.Bitmap, key string, id models.ChunkID) {
	bm, ok := idx[key]
	if !ok {
		bm = roaring.New()
		idx[key] = bm
	}
	bm.Add(uint32(id))
}

// Dimension returns the embedding length shared by all records; 0 for an empty store.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Generation returns the generation directory name the store was loaded from, if any.
func (s *Store) Generation() string { return s.generation }

// Records returns the records in ascending ID order. Callers must not modify them.
func (s *Store) Records() []*models.VectorRecord { return s.records }

// Record returns the record with the given ID.
func (s *Store) Record(id models.ChunkID) (*models.VectorRecord, bool) {
	i := sort.Search(len(s.records), func(i int) bool { return s.records[i].ID >= id })
	if i < len(s.records) && s.records[i].ID == id {
		return s.records[i], true
	}
	return nil, false
}

// Categories returns the distinct categories in lexical order.
func (s *Store) Categories() []string {
	return sortedKeys(s.byCategory)
}

// Sources returns the distinct sources in lexical order.
func (s *Store) Sources() []string {
	return sortedKeys(s.bySource)
}

func sortedKeys(idx map[string]*roaring.Bitmap) []string {
	out := make([]string, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Filter returns the set of chunk IDs matching any of the categories and any of the sources.
// An empty list places no restriction on that field. Returns nil when neither list is set.
func (s *Store) Filter(categories, sources []string) *roaring.Bitmap {
	if len(categories) == 0 && len(sources) == 0 {
		return nil
	}
	var allow *roaring.Bitmap
	if len(categories) > 0 {
		allow = union(s.byCategory, categories)
	}
	if len(sources) > 0 {
		bySource := union(s.bySource, sources)
		if allow == nil {
			allow = bySource
		} else {
			allow.And(bySource)
		}
	}
	return allow
}

func union(idx map[string]*roaring.Bitmap, keys []string) *roaring.Bitmap {
	out := roaring.New()
	for _, k := range keys {
		if bm, ok := idx[k]; ok {
			out.Or(bm)
		}
	}
	return out
}
