package faq

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeMessage prepares text for similarity scoring: NFC, lowercase, trimmed.
func normalizeMessage(text string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(text)))
}

// canonicalQuery folds punctuation and spacing so trending counters group
// near-identical questions under one key.
func canonicalQuery(q string) string {
	lowered := normalizeMessage(q)
	var builder strings.Builder
	builder.Grow(len(lowered))
	lastSpace := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			lastSpace = false
			continue
		}
		// whitespace and punctuation collapse to one space
		if !lastSpace {
			builder.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
