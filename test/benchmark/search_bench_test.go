package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/hyperjump/ragfeed/internal/embedding"
	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/search"
	"github.com/hyperjump/ragfeed/internal/vector"
)

func randomStore(b *testing.B, n, dim int) *vector.Store {
	b.Helper()
	rng := rand.New(rand.NewSource(1))
	records := make([]*models.VectorRecord, n)
	for i := range records {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		unit, err := vector.Normalize(v)
		if err != nil {
			b.Fatal(err)
		}
		records[i] = &models.VectorRecord{
			ID:        models.ChunkID(i),
			Embedding: unit,
			Text:      fmt.Sprintf("chunk %d", i),
			Source:    fmt.Sprintf("doc-%d.txt", i/10),
			Category:  fmt.Sprintf("cat-%d", i%5),
		}
	}
	store, err := vector.NewStore(records)
	if err != nil {
		b.Fatal(err)
	}
	return store
}

func BenchmarkRetrieve(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("records=%d", n), func(b *testing.B) {
			store := randomStore(b, n, 384)
			scores := models.FeedbackScores{}
			for i := 0; i < n; i += 7 {
				scores[models.ChunkID(i)] = i%3 - 1
			}
			query := store.Records()[0].Embedding
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = search.Retrieve(query, store, scores, 10, 0.15, nil)
			}
		})
	}
}

func BenchmarkRetrieve_Filtered(b *testing.B) {
	store := randomStore(b, 10000, 384)
	allow := store.Filter([]string{"cat-1"}, nil)
	query := store.Records()[0].Embedding
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = search.Retrieve(query, store, nil, 10, 0.15, allow)
	}
}

func BenchmarkAggregate(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 10000; i++ {
		sb.WriteString(feedback.FormatEvent(models.FeedbackEvent{
			Query:   fmt.Sprintf("query %d", i%100),
			ChunkID: models.ChunkID(i % 500),
			Helpful: i%3 != 0,
		}))
	}
	data := sb.String()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = feedback.Aggregate(strings.NewReader(data))
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
