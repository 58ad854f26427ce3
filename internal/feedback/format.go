package feedback

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ragfeed/internal/models"
	"github.com/hyperjump/ragfeed/pkg/utils"
)

const (
	labelHelpful   = "YES"
	labelUnhelpful = "NO"
)

// Stats describes one fold over a log.
type Stats struct {
	Lines     int  `json:"lines"`     // complete lines read
	Events    int  `json:"events"`    // lines that contributed to scores
	Legacy    int  `json:"legacy"`    // two-field lines without a chunk id
	Malformed int  `json:"malformed"` // any other unrecognized shape
	Partial   bool `json:"partial"`   // an unterminated trailing fragment was ignored
}

// Skipped returns the number of complete lines that did not contribute to scores.
func (s Stats) Skipped() int {
	return s.Legacy + s.Malformed
}

// FormatEvent renders one event as a log line including the trailing newline.
// Tabs and line breaks in the query are replaced by spaces.
func FormatEvent(ev models.FeedbackEvent) string {
	label := labelUnhelpful
	if ev.Helpful {
		label = labelHelpful
	}
	return fmt.Sprintf("%s\t%s\t%s\n", utils.SingleLine(ev.Query), ev.ChunkID, label)
}

// lineKind classifies a parsed line.
type lineKind int

const (
	lineEvent lineKind = iota
	lineLegacy
	lineMalformed
)

// ParseLine parses one log line without its trailing newline. ok is false for legacy
// two-field lines and any unrecognized shape.
func ParseLine(line string) (ev models.FeedbackEvent, ok bool) {
	ev, kind := parseLine(line)
	return ev, kind == lineEvent
}

func parseLine(line string) (models.FeedbackEvent, lineKind) {
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, "\t")
	switch len(fields) {
	case 3:
	case 2:
		return models.FeedbackEvent{}, lineLegacy
	default:
		return models.FeedbackEvent{}, lineMalformed
	}
	id, err := models.ParseChunkID(fields[1])
	if err != nil {
		return models.FeedbackEvent{}, lineMalformed
	}
	var helpful bool
	switch fields[2] {
	case labelHelpful:
		helpful = true
	case labelUnhelpful:
	default:
		return models.FeedbackEvent{}, lineMalformed
	}
	return models.FeedbackEvent{Query: fields[0], ChunkID: id, Helpful: helpful}, lineEvent
}

// Aggregate folds every complete line of r into per-chunk scores. Unrecognized lines are
// skipped and counted; a trailing fragment without a newline is ignored.
func Aggregate(r io.Reader) (models.FeedbackScores, Stats, error) {
	scores := models.FeedbackScores{}
	var stats Stats
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				stats.Partial = line != ""
				return scores, stats, nil
			}
			return nil, stats, fmt.Errorf("read feedback log: %w", err)
		}
		stats.Lines++
		ev, kind := parseLine(strings.TrimSuffix(line, "\n"))
		switch kind {
		case lineEvent:
			scores.Add(ev.ChunkID, ev.Helpful)
			stats.Events++
		case lineLegacy:
			stats.Legacy++
		default:
			stats.Malformed++
		}
	}
}
