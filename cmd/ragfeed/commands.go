package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/ragfeed/internal/cli"
	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/feedback"
	"github.com/hyperjump/ragfeed/internal/indexer"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/publish"
	"github.com/hyperjump/ragfeed/internal/server"
	"github.com/hyperjump/ragfeed/internal/watcher"
	"github.com/hyperjump/ragfeed/pkg/utils"
	"go.uber.org/zap"
)

// setup loads the config, creates the logger and initializes components. It exits on failure.
func setup(ctx context.Context, configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath), zap.Bool("debug", debugMode))

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataDir := fs.String("data-dir", "", "corpus directory (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, logger, components := setup(ctx, *configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	dir := cfg.Corpus.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}
	start := time.Now()
	store, stats, err := components.Builder.BuildFromDirectory(ctx, dir)
	if err != nil {
		if errors.Is(err, indexer.ErrNoChunks) {
			fmt.Fprintf(os.Stderr, "No documents found in %s\n", dir)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Vector store created with %d chunks from %d documents (%d skipped) in %s\n",
		store.Len(), stats.Documents, stats.Skipped, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Generation: %s\n", store.Generation())
}

// buildQuery joins all positional args with spaces so multi-word queries work with or
// without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after positional arguments to the front so that
// flag.Parse sees them. The flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseChunkIDs parses positional chunk IDs; commas are accepted as separators too.
func parseChunkIDs(args []string) ([]models.ChunkID, error) {
	var ids []models.ChunkID
	for _, arg := range args {
		for _, s := range splitList(arg) {
			id, err := models.ParseChunkID(s)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the store directly)")
	k := fs.Int("k", 0, "number of results (default from config)")
	category := fs.String("category", "", "comma-separated categories to search")
	source := fs.String("source", "", "comma-separated source documents to search")
	withAnswer := fs.Bool("answer", false, "print an extractive answer built from the results")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(args))

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: ragfeed query [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.RetrievalQuery{
		Query:      queryStr,
		K:          *k,
		Categories: splitList(*category),
		Sources:    splitList(*source),
		Answer:     *withAnswer,
	}

	var resp *models.RetrievalResponse
	if *serverURL != "" {
		resp, err = newClient(*serverURL).Retrieve(query)
	} else {
		ctx := context.Background()
		_, logger, components := setup(ctx, *configPath, *debug)
		defer logger.Sync()
		defer components.Close()
		resp, err = components.Engine.Retrieve(ctx, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRetrieval(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runFeedback(args []string) {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = write the log directly)")
	queryStr := fs.String("query", "", "the query the chunks were retrieved for")
	helpful := fs.Bool("helpful", true, "mark the chunks helpful; --helpful=false marks them unhelpful")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(args))

	ids, err := parseChunkIDs(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid chunk id: %v\n", err)
		os.Exit(1)
	}
	req := &models.FeedbackRequest{Query: *queryStr, ChunkIDs: ids, Helpful: *helpful}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage: ragfeed feedback --query <query> [--helpful=false] <chunk ids...>\n", err)
		os.Exit(1)
	}

	if *serverURL != "" {
		err = newClient(*serverURL).Feedback(req)
	} else {
		ctx := context.Background()
		_, logger, components := setup(ctx, *configPath, *debug)
		defer logger.Sync()
		defer components.Close()
		err = components.Log.Append(ctx, req.Events())
		if err == nil {
			if c, cerr := components.Compactor.MaybeCompact(ctx); cerr != nil {
				logger.Warn("auto compaction failed", zap.Error(cerr))
			} else if c != nil {
				fmt.Printf("Feedback log compacted (%d events)\n", c.Events)
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Feedback failed: %v\n", err)
		os.Exit(1)
	}
	label := "helpful"
	if !*helpful {
		label = "unhelpful"
	}
	fmt.Printf("Recorded %d %s feedback event(s)\n", len(ids), label)
}

func runCompact(args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	replay := fs.String("replay", "", "print the scores folded from a compaction archive and exit")
	_ = fs.Parse(args)

	if *replay != "" {
		scores, stats, err := feedback.ReplayArchive(*replay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Replay failed: %v\n", err)
			os.Exit(1)
		}
		printReplay(os.Stdout, *replay, scores, stats)
		return
	}

	ctx := context.Background()
	_, logger, components := setup(ctx, *configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	c, err := components.Compactor.Compact(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compaction failed: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		fmt.Println("Feedback log is empty; nothing to compact")
		return
	}
	fmt.Printf("Compacted %d events (%d lines skipped, %s) into %s\n",
		c.Events, c.Skipped, cli.FormatBytes(c.Bytes), c.ArchivePath)
}

// printReplay writes the archive summary followed by one line per chunk in ID order.
func printReplay(w io.Writer, path string, scores models.FeedbackScores, stats feedback.Stats) {
	fmt.Fprintf(w, "%s: %d events, %d lines skipped\n", path, stats.Events, stats.Skipped())
	ids := make([]models.ChunkID, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(w, "  chunk %d\t%+d\n", id, scores[id])
	}
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "rebuild the store when the corpus changes")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, logger, components := setup(ctx, *configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	srv := server.NewServer(components.Services(), cfg, server.NewMetrics(), logger)

	if *watch || cfg.Corpus.Watch {
		metrics := srv.Metrics()
		w := watcher.NewWatcher(cfg.Corpus.DataDir, cfg.Corpus.Extensions, func(paths []string) {
			store, _, err := components.Builder.BuildFromDirectory(ctx, cfg.Corpus.DataDir)
			switch {
			case errors.Is(err, indexer.ErrNoChunks):
				metrics.ObserveBuild("empty")
				logger.Warn("rebuild skipped: no documents found", zap.String("data_dir", cfg.Corpus.DataDir))
			case err != nil:
				metrics.ObserveBuild("error")
				logger.Error("rebuild failed", zap.Error(err))
			default:
				metrics.ObserveBuild("ok")
				logger.Info("store rebuilt", zap.String("generation", store.Generation()), zap.Int("records", store.Len()))
			}
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = inspect files directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var st *models.Status
	if *serverURL != "" {
		st, err = newClient(*serverURL).Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		ctx := context.Background()
		cfg, logger, components := setup(ctx, *configPath, false)
		defer logger.Sync()
		defer components.Close()
		st = server.CollectStatus(ctx, components.Services(), cfg)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	ctx := context.Background()
	cfg, logger, components := setup(ctx, *configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	if components.Uploader == nil {
		fmt.Fprintln(os.Stderr, "Publishing is not configured (set publish.type to minio or s3)")
		os.Exit(1)
	}
	res, err := publish.Store(ctx, components.Uploader, cfg.Storage.StoreDir, cfg.Publish.Prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Published generation %s to %s:\n", res.Generation, cfg.Publish.Bucket)
	for _, key := range res.Keys {
		fmt.Printf("  %s\n", key)
	}
}
