package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreNotFound is returned when a store artifact is missing.
	ErrStoreNotFound = errors.New("vector store not found")
	// ErrStoreCorrupt is returned when artifacts cannot be parsed or disagree with each other.
	ErrStoreCorrupt = errors.New("vector store corrupt")
	// ErrDimensionMismatch is returned when a query vector's length differs from the store dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// DegenerateVectorError reports a vector that cannot be normalized.
type DegenerateVectorError struct {
	Norm      float64
	Dimension int
}

func (e *DegenerateVectorError) Error() string {
	return fmt.Sprintf("degenerate vector: norm %v over %d dimensions", e.Norm, e.Dimension)
}

// CorruptError describes why a store failed validation. It matches ErrStoreCorrupt with errors.Is.
type CorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrStoreCorrupt, e.Reason)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", ErrStoreCorrupt, e.Path, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrStoreCorrupt) true for any *CorruptError.
func (e *CorruptError) Is(target error) bool {
	return target == ErrStoreCorrupt
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func corrupt(path, reason string, err error) error {
	return &CorruptError{Path: path, Reason: reason, Err: err}
}
