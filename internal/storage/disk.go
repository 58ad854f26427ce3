package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of each storage location.
type Usage struct {
	StoreBytes    int64 `json:"store_bytes"`
	FeedbackBytes int64 `json:"feedback_bytes"`
	DatabaseBytes int64 `json:"database_bytes"`
	ArchiveBytes  int64 `json:"archive_bytes"`
}

// Total returns the sum of all locations.
func (u Usage) Total() int64 {
	return u.StoreBytes + u.FeedbackBytes + u.DatabaseBytes + u.ArchiveBytes
}

// MeasureUsage reports the size of the store directory, feedback log, database
// (with its WAL and shared-memory files) and archive directory.
func MeasureUsage(storeDir, feedbackLog, database, archiveDir string) (Usage, error) {
	var u Usage
	var err error
	if u.StoreBytes, err = DiskUsageBytes(storeDir); err != nil {
		return u, err
	}
	if u.FeedbackBytes, err = DiskUsageBytes(feedbackLog); err != nil {
		return u, err
	}
	if u.DatabaseBytes, err = DiskUsageBytes(database, database+"-wal", database+"-shm"); err != nil {
		return u, err
	}
	if u.ArchiveBytes, err = DiskUsageBytes(archiveDir); err != nil {
		return u, err
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed); symlinks are not followed.
// Missing paths contribute 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		switch {
		case info.IsDir():
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		case info.Mode().IsRegular():
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
