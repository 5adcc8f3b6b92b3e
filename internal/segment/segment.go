// Package segment splits page text into paragraph units.
package segment

import (
	"regexp"
	"strings"
)

// Separator is the canonical boundary between paragraphs.
const Separator = "\n\n"

// blankRun matches a line break followed by one or more empty or
// whitespace-only lines.
var blankRun = regexp.MustCompile(`\n(?:[ \t\f\v]*\n)+`)

// Split breaks text on blank-line boundaries and returns the trimmed,
// non-empty paragraphs in source order.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	parts := blankRun.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

// Join rejoins paragraphs with the canonical separator.
// Split(Join(Split(x))) is always equal to Split(x).
func Join(paragraphs []string) string {
	return strings.Join(paragraphs, Separator)
}
