// Package main is the ragfeed CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/embedding"
	"github.com/hyperjump/ragfeed/internal/extract"
	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/indexer"
	"github.com/hyperjump/ragfeed/internal/publish"
	"github.com/hyperjump/ragfeed/internal/search"
	"github.com/hyperjump/ragfeed/internal/server"
	"github.com/hyperjump/ragfeed/internal/storage"
	"github.com/hyperjump/ragfeed/internal/vector"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragfeed/config.yaml"

// loadConfig loads config from path. When path is the default, ./config.yaml is preferred
// if it exists; when neither exists, defaults resolved against the working directory are used.
// Returns the config and the path that was loaded ("" for pure defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		fallback := filepath.Join(cwd, "config.yaml")
		if _, err := os.Stat(fallback); err == nil {
			cfg, err := config.Load(fallback)
			if err != nil {
				return nil, "", err
			}
			return cfg, fallback, nil
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "build":
		runBuild(args)
	case "query":
		runQuery(args)
	case "feedback":
		runFeedback(args)
	case "compact":
		runCompact(args)
	case "server":
		runServer(args)
	case "status":
		runStatus(args)
	case "publish":
		runPublish(args)
	case "version", "--version", "-v":
		fmt.Printf("ragfeed version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Embedder   embedding.Embedder
	Loader     *vector.Loader
	Log        *feedback.Log
	Snapshot   *storage.SQLiteStorage
	Aggregator *feedback.Aggregator
	Compactor  *feedback.Compactor
	Builder    *indexer.Builder
	Engine     *search.Engine
	Uploader   publish.Uploader
}

// Services returns the components the HTTP API needs.
func (c *Components) Services() server.Services {
	return server.Services{
		Engine:     c.Engine,
		Loader:     c.Loader,
		Log:        c.Log,
		Aggregator: c.Aggregator,
		Builder:    c.Builder,
		Compactor:  c.Compactor,
		Snapshot:   c.Snapshot,
	}
}

func (c *Components) Close() {
	if c.Snapshot != nil {
		_ = c.Snapshot.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}

	embedder, err := embedding.NewFromConfig(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	snapshot, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize feedback snapshot: %w", err)
	}
	c.Snapshot = snapshot

	codec, err := feedback.ParseCodec(cfg.Feedback.ArchiveCodec)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Log = feedback.NewLog(cfg.Storage.FeedbackLogPath,
		feedback.WithLogger(logger),
		feedback.WithLockTimeout(cfg.Feedback.LockTimeout()),
		feedback.WithRetryInterval(cfg.Feedback.LockRetryInterval()),
		feedback.WithSync(cfg.Feedback.SyncOrDefault()),
	)
	c.Aggregator = feedback.NewAggregator(c.Log, snapshot)
	c.Compactor = feedback.NewCompactor(c.Log, snapshot, cfg.Storage.ArchiveDir,
		feedback.WithCompactorLogger(logger),
		feedback.WithCodec(codec),
		feedback.WithThreshold(cfg.Feedback.CompactThreshold),
	)

	c.Loader = vector.NewLoader(cfg.Storage.StoreDir, vector.WithLoaderLogger(logger))
	c.Engine = search.NewEngine(embedder, c.Loader, c.Aggregator, &cfg.Retrieval, search.WithLogger(logger))

	uploader, err := publish.NewFromConfig(ctx, &cfg.Publish)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}
	c.Uploader = uploader

	corpus := indexer.NewCorpusLoader(
		extract.NewExtractor(),
		indexer.NewChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap),
		cfg.Corpus.Extensions,
		logger,
	)
	builderOpts := []indexer.BuilderOption{
		indexer.WithLogger(logger),
		indexer.WithConcurrency(cfg.Embedding.Concurrency),
		indexer.WithCorpusLoader(corpus),
	}
	if uploader != nil && cfg.Publish.OnBuild {
		builderOpts = append(builderOpts, indexer.WithPublisher(uploader, cfg.Publish.Prefix))
	}
	c.Builder = indexer.NewBuilder(embedder, cfg.Storage.StoreDir, builderOpts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`ragfeed - Feedback-weighted dense retrieval

Usage:
  ragfeed build [flags]              Build the vector store from the corpus directory
  ragfeed query [flags] <query>      Retrieve the most relevant chunks
  ragfeed feedback [flags] <ids...>  Record helpful/unhelpful feedback for chunks
  ragfeed compact [flags]            Fold the feedback log into the snapshot database
  ragfeed server [flags]             Start the HTTP server
  ragfeed status [flags]             Show store, feedback and disk usage
  ragfeed publish [flags]            Upload the current store to object storage
  ragfeed version                    Show version
  ragfeed help                       Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml if present, else /usr/local/etc/ragfeed/config.yaml)
  --debug            Enable debug logging

Query Flags:
  --k int            Number of results (default from config)
  --category string  Comma-separated categories to search
  --source string    Comma-separated source documents to search
  --answer           Print an extractive answer built from the results
  --server string    Server URL; empty reads the store directly (default: "")
  --output string    Output format: text, compact, or json (default: text)

Feedback Flags:
  --query string     The query the chunks were retrieved for (required)
  --helpful          Mark the chunks helpful (default: true); --helpful=false marks them unhelpful
  --server string    Server URL; empty writes the log directly (default: "")

Build Flags:
  --data-dir string  Corpus directory (default from config)

Compact Flags:
  --replay string    Print the scores folded from a compaction archive and exit

Server Flags:
  --watch            Rebuild the store when the corpus changes (default from config)

Examples:
  ragfeed build
  ragfeed query "What is a vector database?"
  ragfeed query --k 5 --category finance --output json "quarterly revenue"
  ragfeed feedback --query "What is a vector database?" 2 7
  ragfeed feedback --query "What is a vector database?" --helpful=false 4
  ragfeed compact
  ragfeed compact --replay ./data/archive/feedback-20240102T030405Z-1a2b3c4d.log.zst
  ragfeed server --watch
  ragfeed status --output json`)
}
