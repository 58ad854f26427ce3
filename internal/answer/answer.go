// Package answer composes a short extractive answer from retrieved passages.
package answer

import "strings"

// NoResults is returned by Extractive when there are no passages.
const NoResults = "No relevant documents found for your query."

const (
	maxPassages  = 3
	maxSentences = 2
	separator    = ". "
)

// Extractive takes the first two sentences of each of the first three passages and joins them.
// Sentences are split on ". " only.
func Extractive(texts []string) string {
	if len(texts) == 0 {
		return NoResults
	}
	if len(texts) > maxPassages {
		texts = texts[:maxPassages]
	}
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		sentences := strings.Split(text, separator)
		if len(sentences) > maxSentences {
			sentences = sentences[:maxSentences]
		}
		parts = append(parts, strings.Join(sentences, separator))
	}
	return strings.TrimSpace(strings.Join(parts, separator)) + "..."
}
