package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/ragfeed/internal/config"
	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/internal/vector"
)

// memUploader records uploaded file contents by key.
type memUploader struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  error
}

func (m *memUploader) Upload(ctx context.Context, key, localPath, contentType string) error {
	if m.fail != nil {
		return m.fail
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[key] = data
	return nil
}

func TestStore_UploadsCurrentGeneration(t *testing.T) {
	dir := t.TempDir()
	gen, err := vector.Write(dir, []*models.VectorRecord{{ID: 0, Embedding: []float32{1, 0}, Text: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	u := &memUploader{}
	res, err := Store(context.Background(), u, dir, "ragfeed/prod")
	if err != nil {
		t.Fatal(err)
	}
	if res.Generation != gen {
		t.Errorf("Generation = %s, want %s", res.Generation, gen)
	}
	want := []string{
		"ragfeed/prod/" + gen + "/embeddings.json",
		"ragfeed/prod/" + gen + "/metadata.json",
	}
	if len(res.Keys) != 2 || res.Keys[0] != want[0] || res.Keys[1] != want[1] {
		t.Errorf("Keys = %v, want %v", res.Keys, want)
	}
	if len(u.files[want[1]]) == 0 {
		t.Error("metadata content not uploaded")
	}
}

func TestStore_FlatLayout(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{vector.EmbeddingsFile, vector.MetadataFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	res, err := Store(context.Background(), &memUploader{}, dir, "p")
	if err != nil {
		t.Fatal(err)
	}
	if res.Generation != "flat" || res.Keys[0] != "p/flat/embeddings.json" {
		t.Errorf("result = %+v", res)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Store(ctx, &memUploader{}, t.TempDir(), "p"); !errors.Is(err, vector.ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}

	dir := t.TempDir()
	if _, err := vector.Write(dir, nil); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if _, err := Store(ctx, &memUploader{fail: boom}, dir, "p"); !errors.Is(err, boom) {
		t.Errorf("expected upload error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	u, err := NewFromConfig(ctx, &config.PublishConfig{})
	if err != nil || u != nil {
		t.Errorf("disabled publish: %v, %v", u, err)
	}
	if _, err := NewFromConfig(ctx, &config.PublishConfig{Type: "minio"}); err == nil {
		t.Error("expected error without bucket")
	}
	u, err = NewFromConfig(ctx, &config.PublishConfig{Type: "minio", Bucket: "b", Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*MinioUploader); !ok {
		t.Errorf("expected *MinioUploader, got %T", u)
	}
	if _, err := NewFromConfig(ctx, &config.PublishConfig{Type: "ftp", Bucket: "b"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestNewS3Uploader(t *testing.T) {
	u, err := NewS3Uploader(context.Background(), S3Config{
		Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.bucket != "b" {
		t.Errorf("bucket = %s", u.bucket)
	}
	if _, err := NewS3Uploader(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
