package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("a", filepath.Join(sub, "link")); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(sub)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("directory: got %d bytes, want 3", got)
	}

	got, err = DiskUsageBytes(f1, sub, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("combined: got %d bytes, want 8", got)
	}
}

func TestMeasureUsage(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	if err := os.MkdirAll(store, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store, "embeddings.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "feedback.log")
	if err := os.WriteFile(logPath, []byte("q\t1\tYES\n"), 0644); err != nil {
		t.Fatal(err)
	}
	u, err := MeasureUsage(store, logPath, filepath.Join(dir, "none.db"), filepath.Join(dir, "archive"))
	if err != nil {
		t.Fatal(err)
	}
	if u.StoreBytes != 2 || u.FeedbackBytes != 9 || u.DatabaseBytes != 0 || u.ArchiveBytes != 0 {
		t.Errorf("usage = %+v", u)
	}
	if u.Total() != 11 {
		t.Errorf("Total() = %d, want 11", u.Total())
	}
}
