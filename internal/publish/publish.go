// Package publish uploads vector store artifacts to object storage.
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/vector"
)

// Uploader puts a local file into a bucket under key.
type Uploader interface {
	Upload(ctx context.Context, key, localPath, contentType string) error
}

// Result lists what one publish uploaded.
type Result struct {
	Generation string   `json:"generation"`
	Keys       []string `json:"keys"`
}

// flatGeneration names stores written without generation directories.
const flatGeneration = "flat"

// Store uploads the live artifacts of the store at storeDir to prefix/<generation>/.
// The generation is resolved once so both artifacts come from the same build.
func Store(ctx context.Context, u Uploader, storeDir, prefix string) (*Result, error) {
	dir, err := vector.ResolveDir(storeDir)
	if err != nil {
		return nil, err
	}
	generation := flatGeneration
	if dir != storeDir {
		generation = filepath.Base(dir)
	}
	res := &Result{Generation: generation}
	for _, name := range []string{vector.EmbeddingsFile, vector.MetadataFile} {
		local := filepath.Join(dir, name)
		if _, err := os.Stat(local); err != nil {
			return nil, fmt.Errorf("%w: %s", vector.ErrStoreNotFound, local)
		}
		key := path.Join(prefix, generation, name)
		if err := u.Upload(ctx, key, local, "application/json"); err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

// NewFromConfig returns the configured uploader, or nil when publishing is disabled.
func NewFromConfig(ctx context.Context, cfg *config.PublishConfig) (Uploader, error) {
	if cfg.Bucket == "" && cfg.Enabled() {
		return nil, fmt.Errorf("publish bucket is required")
	}
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	secretKey := os.Getenv(cfg.SecretKeyEnv)
	switch cfg.Type {
	case "":
		return nil, nil
	case "minio":
		return NewMinioUploader(MinioConfig{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			AccessKey: accessKey,
			SecretKey: secretKey,
			UseSSL:    cfg.UseSSL,
		})
	case "s3":
		return NewS3Uploader(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: accessKey,
			SecretKey: secretKey,
		})
	default:
		return nil, fmt.Errorf("unknown publish type: %q", cfg.Type)
	}
}
