//go:build !unix

package feedback

import (
	"os"
	"path/filepath"
	"sync"
)

// Without flock, locks only exclude callers within this process.
var (
	locksMu sync.Mutex
	locks   = map[string]*sync.RWMutex{}
)

func lockFor(f *os.File) *sync.RWMutex {
	key, err := filepath.Abs(f.Name())
	if err != nil {
		key = f.Name()
	}
	locksMu.Lock()
	defer locksMu.Unlock()
	mu, ok := locks[key]
	if !ok {
		mu = &sync.RWMutex{}
		locks[key] = mu
	}
	return mu
}

func tryLock(f *os.File, exclusive bool) (bool, error) {
	mu := lockFor(f)
	if exclusive {
		return mu.TryLock(), nil
	}
	return mu.TryRLock(), nil
}

func unlock(f *os.File, exclusive bool) error {
	mu := lockFor(f)
	if exclusive {
		mu.Unlock()
	} else {
		mu.RUnlock()
	}
	return nil
}
