package indexer

import "strings"

// Preprocess collapses every run of whitespace to a single space and trims the ends.
func Preprocess(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
