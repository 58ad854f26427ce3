package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/embedding"
	"github.com/hyperjump/ragfeed/internal/extract"
	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/indexer"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/search"
	"github.com/hyperjump/ragfeed/internal/storage"
	"github.com/hyperjump/ragfeed/internal/vector"
)

const (
	e2eK          = 5
	e2eDimensions = 384
)

type env struct {
	cfg        *config.Config
	corpus     *Corpus
	sources    map[string]string // category/name -> source written to disk
	builder    *indexer.Builder
	loader     *vector.Loader
	log        *feedback.Log
	snapshot   *storage.SQLiteStorage
	aggregator *feedback.Aggregator
	compactor  *feedback.Compactor
	engine     *search.Engine
}

// newEnv writes the corpus under a temp data dir, rotating through exts, and wires the
// build and retrieval components the way the CLI does.
func newEnv(t *testing.T, exts []string) *env {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Corpus.Extensions = exts
	cfg.Embedding.Dimensions = e2eDimensions
	cfg.Retrieval.DefaultK = e2eK

	corpus := BuildCorpus()
	sources := make(map[string]string, len(corpus.Documents))
	for i, d := range corpus.Documents {
		ext := exts[i%len(exts)]
		content, err := EncodeFile(ext, d.Content)
		if err != nil {
			t.Fatalf("encode %s/%s: %v", d.Category, d.Name, err)
		}
		catDir := filepath.Join(cfg.Corpus.DataDir, d.Category)
		if err := os.MkdirAll(catDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(catDir, d.Source(ext)), content, 0644); err != nil {
			t.Fatal(err)
		}
		sources[d.Category+"/"+d.Name] = d.Source(ext)
	}

	snapshot, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { snapshot.Close() })

	emb := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	corpusLoader := indexer.NewCorpusLoader(extract.NewExtractor(),
		indexer.NewChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap), cfg.Corpus.Extensions, nil)
	builder := indexer.NewBuilder(emb, cfg.Storage.StoreDir, indexer.WithCorpusLoader(corpusLoader))
	loader := vector.NewLoader(cfg.Storage.StoreDir)
	log := feedback.NewLog(cfg.Storage.FeedbackLogPath)
	aggregator := feedback.NewAggregator(log, snapshot)
	return &env{
		cfg:        cfg,
		corpus:     corpus,
		sources:    sources,
		builder:    builder,
		loader:     loader,
		log:        log,
		snapshot:   snapshot,
		aggregator: aggregator,
		compactor:  feedback.NewCompactor(log, snapshot, cfg.Storage.ArchiveDir),
		engine:     search.NewEngine(emb, loader, aggregator, &cfg.Retrieval),
	}
}

func (e *env) build(t *testing.T) indexer.CorpusStats {
	t.Helper()
	_, stats, err := e.builder.BuildFromDirectory(context.Background(), e.cfg.Corpus.DataDir)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return stats
}

func hasSource(results []*models.RetrievalResult, category, source string) bool {
	for _, r := range results {
		if r.Category == category && r.Source == source {
			return true
		}
	}
	return false
}

func TestE2E_RetrievalReturnsExpectedDocuments(t *testing.T) {
	e := newEnv(t, []string{".txt"})
	stats := e.build(t)
	if stats.Documents != len(e.corpus.Documents) || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want %d documents", stats, len(e.corpus.Documents))
	}
	t.Logf("built %d chunks; running %d query cases", stats.Chunks, len(e.corpus.Cases))

	ctx := context.Background()
	for _, tc := range e.corpus.Cases {
		tc := tc
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := e.engine.Retrieve(ctx, &models.RetrievalQuery{Query: tc.Query})
			if err != nil {
				t.Fatalf("retrieve: %v", err)
			}
			if len(resp.Results) != e2eK {
				t.Fatalf("got %d results, want %d", len(resp.Results), e2eK)
			}
			source := e.sources[tc.Category+"/"+tc.Name]
			if !hasSource(resp.Results, tc.Category, source) {
				t.Errorf("query %q: %s/%s not in top %d", tc.Query, tc.Category, source, e2eK)
			}
		})
	}
}

func TestE2E_FileFormats(t *testing.T) {
	e := newEnv(t, FileExtensions)
	stats := e.build(t)
	if stats.Documents != len(e.corpus.Documents) || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want %d documents", stats, len(e.corpus.Documents))
	}

	ctx := context.Background()
	for _, tc := range e.corpus.Cases {
		tc := tc
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := e.engine.Retrieve(ctx, &models.RetrievalQuery{Query: tc.Query})
			if err != nil {
				t.Fatalf("retrieve: %v", err)
			}
			source := e.sources[tc.Category+"/"+tc.Name]
			if !hasSource(resp.Results, tc.Category, source) {
				t.Errorf("query %q: %s/%s not in top %d", tc.Query, tc.Category, source, e2eK)
			}
		})
	}
}

func TestE2E_CategoryFilter(t *testing.T) {
	e := newEnv(t, []string{".md"})
	e.build(t)

	resp, err := e.engine.Retrieve(context.Background(), &models.RetrievalQuery{
		Query:      "Redis eviction policy",
		K:          20,
		Categories: []string{"security"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results from the security category")
	}
	for _, r := range resp.Results {
		if r.Category != "security" {
			t.Errorf("result %d from category %q", r.ChunkID, r.Category)
		}
	}
}

// Repeated negative feedback pushes a chunk out of the top results, and compaction keeps
// the ranking unchanged.
func TestE2E_FeedbackDemotesAndSurvivesCompaction(t *testing.T) {
	e := newEnv(t, []string{".txt"})
	e.build(t)
	ctx := context.Background()
	query := &models.RetrievalQuery{Query: "Kafka consumer group", K: 3}

	before, err := e.engine.Retrieve(ctx, query)
	if err != nil {
		t.Fatal(err)
	}
	top := before.Results[0]
	if top.Source != e.sources["data/kafka"] {
		t.Fatalf("top source = %s, want %s", top.Source, e.sources["data/kafka"])
	}

	for i := 0; i < 20; i++ {
		if err := e.log.Record(ctx, models.FeedbackEvent{Query: query.Query, ChunkID: top.ChunkID, Helpful: false}); err != nil {
			t.Fatal(err)
		}
	}

	after, err := e.engine.Retrieve(ctx, query)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range after.Results {
		if r.ChunkID == top.ChunkID {
			t.Fatalf("chunk %d still ranked after negative feedback: %+v", top.ChunkID, r)
		}
	}

	comp, err := e.compactor.Compact(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if comp == nil || comp.Events != 20 {
		t.Fatalf("compaction = %+v, want 20 events", comp)
	}
	if _, err := os.Stat(comp.ArchivePath); err != nil {
		t.Errorf("archive missing: %v", err)
	}

	compacted, err := e.engine.Retrieve(ctx, query)
	if err != nil {
		t.Fatal(err)
	}
	if len(compacted.Results) != len(after.Results) {
		t.Fatalf("results after compaction = %d, want %d", len(compacted.Results), len(after.Results))
	}
	for i := range after.Results {
		if compacted.Results[i].ChunkID != after.Results[i].ChunkID {
			t.Errorf("rank %d changed across compaction: %d -> %d",
				i+1, after.Results[i].ChunkID, compacted.Results[i].ChunkID)
		}
	}
	scores, err := e.aggregator.Scores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if scores[top.ChunkID] != -20 {
		t.Errorf("score = %d, want -20", scores[top.ChunkID])
	}
}

func TestE2E_RebuildIsPickedUpByLoader(t *testing.T) {
	e := newEnv(t, []string{".txt"})
	e.build(t)
	first, err := e.loader.Get()
	if err != nil {
		t.Fatal(err)
	}

	extra := filepath.Join(e.cfg.Corpus.DataDir, "data", "zookeeper.txt")
	if err := os.WriteFile(extra, []byte("ZooKeeper elects a leader among ensemble members."), 0644); err != nil {
		t.Fatal(err)
	}
	e.build(t)

	second, err := e.loader.Get()
	if err != nil {
		t.Fatal(err)
	}
	if second.Len() != first.Len()+1 {
		t.Fatalf("store size = %d, want %d", second.Len(), first.Len()+1)
	}
	resp, err := e.engine.Retrieve(context.Background(), &models.RetrievalQuery{Query: "ZooKeeper leader election"})
	if err != nil {
		t.Fatal(err)
	}
	if !hasSource(resp.Results, "data", "zookeeper.txt") {
		t.Error("new document not retrievable after rebuild")
	}
}
