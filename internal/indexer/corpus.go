package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/ragfeed/internal/extract"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/pkg/utils"
	"go.uber.org/zap"
)

// CorpusStats summarizes one corpus load.
type CorpusStats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"` // files that could not be extracted
}

// CorpusLoader turns a data directory laid out as <data_dir>/<category>/<file> into build input.
type CorpusLoader struct {
	extractor  *extract.Extractor
	chunker    *Chunker
	extensions []string
	logger     *zap.Logger
}

// NewCorpusLoader returns a loader accepting files with the given extensions.
func NewCorpusLoader(extractor *extract.Extractor, chunker *Chunker, extensions []string, logger *zap.Logger) *CorpusLoader {
	return &CorpusLoader{
		extractor:  extractor,
		chunker:    chunker,
		extensions: extensions,
		logger:     utils.OrNop(logger),
	}
}

// Load walks dataDir in lexical order. The category of a file is the first directory under
// dataDir; files directly in dataDir are ignored. Each file is extracted, whitespace-collapsed
// and split into chunks. Files that fail extraction are logged and skipped.
func (l *CorpusLoader) Load(ctx context.Context, dataDir string) ([]models.ChunkInput, CorpusStats, error) {
	var stats CorpusStats
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, stats, fmt.Errorf("read data dir: %w", err)
	}
	var inputs []models.ChunkInput
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		category := entry.Name()
		categoryDir := filepath.Join(dataDir, category)
		files, err := l.listFiles(categoryDir)
		if err != nil {
			return nil, stats, err
		}
		for _, rel := range files {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			text, err := l.extractor.Extract(filepath.Join(categoryDir, rel))
			if err != nil {
				stats.Skipped++
				l.logger.Warn("skipping document", zap.String("category", category), zap.String("source", rel), zap.Error(err))
				continue
			}
			stats.Documents++
			source := filepath.ToSlash(rel)
			for _, chunk := range l.chunker.Chunk(Preprocess(text)) {
				inputs = append(inputs, models.ChunkInput{Text: chunk, Source: source, Category: category})
				stats.Chunks++
			}
		}
	}
	return inputs, stats, nil
}

// listFiles returns regular files below dir with an accepted extension, relative to dir,
// in lexical order of their relative path.
func (l *CorpusLoader) listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !extensionAllowed(filepath.Ext(path), l.extensions) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
