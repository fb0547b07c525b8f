package faq

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Algorithm names a similarity strategy.
type Algorithm string

const (
	// AlgorithmRatcliffObershelp scores whole strings by matching-block
	// alignment: 2*M/T where M is matched characters and T the total length.
	AlgorithmRatcliffObershelp Algorithm = "ratcliff_obershelp"
	// AlgorithmSubstring scores 1 when the known question is contained in the
	// message and 0 otherwise.
	AlgorithmSubstring Algorithm = "substring"
)

// DefaultThreshold is the empirically tuned cutoff a score must exceed.
const DefaultThreshold = 0.6

// Scorer returns a similarity in [0, 1] between a normalized known question
// and a normalized message.
type Scorer func(question, message string) float64

// ScorerFor resolves an algorithm name. The empty name selects the
// Ratcliff/Obershelp ratio.
func ScorerFor(alg Algorithm) (Scorer, error) {
	switch alg {
	case AlgorithmRatcliffObershelp, "":
		return RatcliffObershelp, nil
	case AlgorithmSubstring:
		return Containment, nil
	default:
		return nil, fmt.Errorf("unknown similarity algorithm %q", alg)
	}
}

// RatcliffObershelp computes the difflib SequenceMatcher ratio over runes.
func RatcliffObershelp(question, message string) float64 {
	matcher := difflib.NewMatcher(splitRunes(question), splitRunes(message))
	return matcher.Ratio()
}

// Containment is the legacy strategy: an exact substring hit or nothing.
func Containment(question, message string) float64 {
	if question == "" {
		return 0
	}
	if strings.Contains(message, question) {
		return 1
	}
	return 0
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
