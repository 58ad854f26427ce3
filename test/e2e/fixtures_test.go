package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/ragfeed/internal/extract"
)

func TestEncodeFile_AllExtensionsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "feedback weighted retrieval & ranking"
	for _, ext := range FileExtensions {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			content, err := EncodeFile(ext, sample)
			if err != nil {
				t.Fatalf("EncodeFile: %v", err)
			}
			got, err := e.ExtractBytes(content, ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if !strings.Contains(got, sample) {
				t.Errorf("extracted %q does not contain %q", got, sample)
			}
		})
	}
}

func TestEncodeFile_Unsupported(t *testing.T) {
	if _, err := EncodeFile(".pptx", "x"); err == nil {
		t.Error("expected error for extension without encoder")
	}
}
