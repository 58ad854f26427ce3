// Package cli formats retrieval results and status for the ragfeed command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact prints one result per line.
	OutputCompact OutputFormat = "compact"
)

const snippetLen = 200

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteRetrieval writes a retrieval response to w in the given format.
func WriteRetrieval(w io.Writer, resp *models.RetrievalResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		for _, r := range resp.Results {
			fmt.Fprintf(w, "%d\t%s\t%.4f\t%s/%s\t%s\n",
				r.Rank, r.ChunkID, r.Score, r.Category, r.Source, utils.Truncate(utils.SingleLine(r.Text), 80))
		}
		return nil
	default:
		writeRetrievalText(w, resp)
		return nil
	}
}

func writeRetrievalText(w io.Writer, resp *models.RetrievalResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (store: %d chunks)\n", len(resp.Results), resp.QueryTime, resp.StoreSize)
	if resp.FeedbackDegraded {
		fmt.Fprintln(w, "warning: feedback unavailable, ranked by similarity only")
	}
	fmt.Fprintln(w)
	if resp.Answer != "" {
		fmt.Fprintf(w, "Answer: %s\n\n", resp.Answer)
	}
	for _, r := range resp.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Chunk: %s | Score: %.4f (Similarity: %.4f, Feedback: %+d)\n",
			r.Rank, r.ChunkID, r.Score, r.Similarity, r.Feedback)
		fmt.Fprintf(w, "Source: %s/%s\n", r.Category, r.Source)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Text, snippetLen))
	}
}

// WriteStatus writes a status report to w. Compact is treated as text.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintln(w, "Store")
	fmt.Fprintf(w, "  Location:   %s\n", st.Store.Location)
	if st.Store.Error != "" {
		fmt.Fprintf(w, "  Error:      %s\n", st.Store.Error)
	} else {
		fmt.Fprintf(w, "  Generation: %s\n", orDash(st.Store.Generation))
		fmt.Fprintf(w, "  Chunks:     %d (dimension %d, %d sources)\n", st.Store.Records, st.Store.Dimension, st.Store.Sources)
		fmt.Fprintf(w, "  Categories: %s\n", orDash(strings.Join(st.Store.Categories, ", ")))
	}
	fmt.Fprintln(w, "Feedback")
	fmt.Fprintf(w, "  Log:        %s\n", st.Feedback.LogPath)
	if st.Feedback.Error != "" {
		fmt.Fprintf(w, "  Error:      %s\n", st.Feedback.Error)
	}
	fmt.Fprintf(w, "  Events:     %d in log (%d lines skipped)\n", st.Feedback.LogEvents, st.Feedback.SkippedLines)
	fmt.Fprintf(w, "  Scored:     %d chunks\n", st.Feedback.ScoredChunks)
	if len(st.Compactions) > 0 {
		fmt.Fprintln(w, "Compactions")
		for _, c := range st.Compactions {
			fmt.Fprintf(w, "  %s  %s  %d events  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"), c.ID[:min(8, len(c.ID))], c.Events, c.ArchivePath)
		}
	}
	if st.Disk != nil {
		fmt.Fprintln(w, "Disk usage")
		fmt.Fprintf(w, "  Store:      %s\n", FormatBytes(st.Disk.Store))
		fmt.Fprintf(w, "  Feedback:   %s\n", FormatBytes(st.Disk.Feedback))
		fmt.Fprintf(w, "  Database:   %s\n", FormatBytes(st.Disk.Database))
		fmt.Fprintf(w, "  Archive:    %s\n", FormatBytes(st.Disk.Archive))
		fmt.Fprintf(w, "  Total:      %s\n", FormatBytes(st.Disk.Total))
	}
	if st.Config != nil {
		fmt.Fprintln(w, "Config")
		fmt.Fprintf(w, "  Embedding:  %s (%d dims)\n", st.Config.EmbeddingType, st.Config.Dimensions)
		fmt.Fprintf(w, "  Weight:     %g\n", st.Config.FeedbackWeight)
		fmt.Fprintf(w, "  Default k:  %d\n", st.Config.DefaultK)
		fmt.Fprintf(w, "  Data dir:   %s\n", st.Config.DataDir)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
