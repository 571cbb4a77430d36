package app

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// diffLines returns a line diff between two calendar payloads, or "" when
// they only differ in line endings.
func diffLines(before, after string) string {
	return cmp.Diff(splitLines(before), splitLines(after))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
