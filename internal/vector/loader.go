package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// maxLoadAttempts bounds reloads that race with generation pruning.
const maxLoadAttempts = 3

// fingerprint identifies one on-disk version of the artifacts.
type fingerprint struct {
	dir      string
	embSize  int64
	embMod   int64
	metaSize int64
	metaMod  int64
}

// Loader caches the store at a location and reloads it when the artifacts change.
// It is safe for concurrent use; every caller receives a complete immutable snapshot.
type Loader struct {
	location string
	logger   *zap.Logger

	mu    sync.Mutex
	store *Store
	fp    fingerprint
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger for reload events.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader creates a loader for the store at location.
func NewLoader(location string, opts ...LoaderOption) *Loader {
	l := &Loader{location: location, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location returns the store directory.
func (l *Loader) Location() string { return l.location }

// Get returns the current store, reloading it if the artifacts changed since the last call.
func (l *Loader) Get() (*Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		fp    fingerprint
		store *Store
		err   error
	)
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		fp, err = l.fingerprint()
		if err != nil {
			return nil, err
		}
		if l.store != nil && fp == l.fp {
			return l.store, nil
		}
		store, err = Load(l.location)
		if err == nil || !errors.Is(err, ErrStoreNotFound) {
			break
		}
		// The generation resolved above may have been pruned by a concurrent build.
	}
	if err != nil {
		return nil, err
	}
	l.store = store
	l.fp = fp
	l.logger.Info("vector store loaded",
		zap.String("location", l.location),
		zap.String("generation", store.Generation()),
		zap.Int("records", store.Len()),
		zap.Int("dimension", store.Dimension()))
	return store, nil
}

func (l *Loader) fingerprint() (fingerprint, error) {
	dir, err := ResolveDir(l.location)
	if err != nil {
		return fingerprint{}, err
	}
	emb, err := statArtifact(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return fingerprint{}, err
	}
	meta, err := statArtifact(filepath.Join(dir, MetadataFile))
	if err != nil {
		return fingerprint{}, err
	}
	return fingerprint{
		dir:      dir,
		embSize:  emb.Size(),
		embMod:   emb.ModTime().UnixNano(),
		metaSize: meta.Size(),
		metaMod:  meta.ModTime().UnixNano(),
	}, nil
}

func statArtifact(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return info, nil
}
