package feedback

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names an archive compression format.
type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
	CodecNone Codec = "none"
)

// Extension returns the file suffix for archives written with c.
func (c Codec) Extension() string {
	switch c {
	case CodecZstd:
		return ".log.zst"
	case CodecLZ4:
		return ".log.lz4"
	default:
		return ".log"
	}
}

// ParseCodec validates a codec name.
func ParseCodec(s string) (Codec, error) {
	switch c := Codec(s); c {
	case CodecZstd, CodecLZ4, CodecNone:
		return c, nil
	case "":
		return CodecZstd, nil
	default:
		return "", fmt.Errorf("unknown archive codec: %q", s)
	}
}

func codecForPath(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return CodecZstd
	case strings.HasSuffix(path, ".lz4"):
		return CodecLZ4
	default:
		return CodecNone
	}
}

func compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}

// writeArchive stores data compressed with c at path via a synced temp file and rename.
func writeArchive(path string, c Codec, data []byte) error {
	payload, err := compress(c, data)
	if err != nil {
		return fmt.Errorf("compress archive: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename archive: %w", err)
	}
	tmpName = ""
	return nil
}

// ReplayArchive folds the lines of a compaction archive into the scores that compaction
// added to the snapshot.
func ReplayArchive(path string) (models.FeedbackScores, Stats, error) {
	data, err := ReadArchive(path)
	if err != nil {
		return nil, Stats{}, err
	}
	return Aggregate(bytes.NewReader(data))
}

// ReadArchive returns the raw log lines stored in a compaction archive. The codec is
// chosen from the file extension.
func ReadArchive(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	switch codecForPath(path) {
	case CodecZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd archive: %w", err)
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case CodecLZ4:
		return io.ReadAll(lz4.NewReader(f))
	default:
		return io.ReadAll(f)
	}
}
