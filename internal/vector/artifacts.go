package vector

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/ragfeed/internal/models"
)

const (
	// EmbeddingsFile maps decimal chunk IDs to embedding arrays.
	EmbeddingsFile = "embeddings.json"
	// MetadataFile maps decimal chunk IDs to {text, source, category}.
	MetadataFile = "metadata.json"
	// CurrentLink is the symlink naming the live generation directory.
	CurrentLink = "current"

	generationPrefix = "gen-"
)

// ResolveDir returns the directory holding the live artifacts under location. The
// generation layout (location/current -> gen-*) is preferred; otherwise location itself
// is used (flat layout).
func ResolveDir(location string) (string, error) {
	link := filepath.Join(location, CurrentLink)
	if _, err := os.Lstat(link); err == nil {
		dir, err := filepath.EvalSymlinks(link)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: dangling %s", ErrStoreNotFound, link)
			}
			return "", fmt.Errorf("resolve %s: %w", link, err)
		}
		return dir, nil
	}
	return location, nil
}

// Load reads and validates the store at location. Missing artifacts yield ErrStoreNotFound;
// unparsable or inconsistent artifacts yield a *CorruptError. An empty store is valid.
func Load(location string) (*Store, error) {
	dir, err := ResolveDir(location)
	if err != nil {
		return nil, err
	}
	embPath := filepath.Join(dir, EmbeddingsFile)
	metaPath := filepath.Join(dir, MetadataFile)

	var embeddings map[string][]float32
	if err := readJSON(embPath, &embeddings); err != nil {
		return nil, err
	}
	var metadata map[string]models.ChunkMetadata
	if err := readJSON(metaPath, &metadata); err != nil {
		return nil, err
	}

	if len(embeddings) != len(metadata) {
		return nil, corrupt(dir, fmt.Sprintf("embeddings has %d entries, metadata has %d", len(embeddings), len(metadata)), nil)
	}
	records := make([]*models.VectorRecord, 0, len(embeddings))
	for key, emb := range embeddings {
		id, err := models.ParseChunkID(key)
		if err != nil {
			return nil, corrupt(embPath, fmt.Sprintf("invalid chunk id %q", key), err)
		}
		meta, ok := metadata[key]
		if !ok {
			return nil, corrupt(metaPath, fmt.Sprintf("missing metadata for chunk %s", key), nil)
		}
		records = append(records, &models.VectorRecord{
			ID:        id,
			Embedding: emb,
			Text:      meta.Text,
			Source:    meta.Source,
			Category:  meta.Category,
		})
	}
	// Keys such as "7" and "07" parse to the same ID; NewStore rejects the duplicate.
	store, err := NewStore(records)
	if err != nil {
		return nil, corrupt(dir, "invalid records", err)
	}
	if dir != location {
		store.generation = filepath.Base(dir)
	}
	return store, nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	dec := json.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(v); err != nil {
		return corrupt(path, "invalid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return corrupt(path, "trailing data after JSON document", nil)
	}
	return nil
}

// Write persists records as a new generation under location and atomically repoints
// location/current at it. Live artifacts are never modified in place. The previous
// generation is kept for readers that resolved it before the swap; older ones are removed.
// Returns the new generation name.
func Write(location string, records []*models.VectorRecord) (string, error) {
	if err := os.MkdirAll(location, 0755); err != nil {
		return "", fmt.Errorf("create store dir: %w", err)
	}
	previous, _ := os.Readlink(filepath.Join(location, CurrentLink))

	generation := generationPrefix + uuid.NewString()
	genDir := filepath.Join(location, generation)
	if err := os.Mkdir(genDir, 0755); err != nil {
		return "", fmt.Errorf("create generation dir: %w", err)
	}

	embeddings := make(map[string][]float32, len(records))
	metadata := make(map[string]models.ChunkMetadata, len(records))
	for _, r := range records {
		key := r.ID.String()
		embeddings[key] = r.Embedding
		metadata[key] = r.Metadata()
	}
	if err := writeJSONFile(filepath.Join(genDir, EmbeddingsFile), embeddings); err != nil {
		_ = os.RemoveAll(genDir)
		return "", err
	}
	if err := writeJSONFile(filepath.Join(genDir, MetadataFile), metadata); err != nil {
		_ = os.RemoveAll(genDir)
		return "", err
	}
	syncDir(genDir)

	if err := swapCurrent(location, generation); err != nil {
		_ = os.RemoveAll(genDir)
		return "", err
	}
	pruneGenerations(location, generation, filepath.Base(previous))
	return generation, nil
}

// WriteStore validates records, persists them with Write and returns the store labeled
// with the new generation.
func WriteStore(location string, records []*models.VectorRecord) (*Store, error) {
	store, err := NewStore(records)
	if err != nil {
		return nil, err
	}
	generation, err := Write(location, store.records)
	if err != nil {
		return nil, err
	}
	store.generation = generation
	return store, nil
}

// swapCurrent points location/current at generation by renaming a fresh symlink over it.
func swapCurrent(location, generation string) error {
	tmp := filepath.Join(location, ".current-"+uuid.NewString())
	if err := os.Symlink(generation, tmp); err != nil {
		return fmt.Errorf("create current link: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(location, CurrentLink)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap current link: %w", err)
	}
	syncDir(location)
	return nil
}

// pruneGenerations removes generation directories other than keep.
func pruneGenerations(location string, keep ...string) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return
	}
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), generationPrefix) || kept[e.Name()] {
			continue
		}
		_ = os.RemoveAll(filepath.Join(location, e.Name()))
	}
}

// Generations lists generation directory names under location in lexical order.
func Generations(location string) ([]string, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), generationPrefix) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// writeJSONFile writes v to path through a synced temp file and rename.
func writeJSONFile(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	tmpName = ""
	return nil
}

// syncDir fsyncs a directory so renames inside it are durable. Best effort.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
