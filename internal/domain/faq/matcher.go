package faq

import "fmt"

// MatcherConfig selects the similarity strategy and its cutoff.
type MatcherConfig struct {
	Algorithm Algorithm
	Threshold float64
}

// Matcher decides whether a catalog entry answers an incoming message.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	algorithm Algorithm
	score     Scorer
	threshold float64
}

// NewMatcher validates cfg and builds a Matcher.
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	score, err := ScorerFor(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Threshold < 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("similarity threshold must be within [0, 1), got %v", cfg.Threshold)
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = AlgorithmRatcliffObershelp
	}
	return &Matcher{algorithm: alg, score: score, threshold: cfg.Threshold}, nil
}

// DefaultMatcher uses the Ratcliff/Obershelp ratio with a 0.6 cutoff.
func DefaultMatcher() *Matcher {
	return &Matcher{algorithm: AlgorithmRatcliffObershelp, score: RatcliffObershelp, threshold: DefaultThreshold}
}

// Algorithm reports the configured strategy.
func (m *Matcher) Algorithm() Algorithm {
	return m.algorithm
}

// Match returns the answer of the best scoring entry whose score is strictly
// above the threshold. Entries are visited in catalog order and a later entry
// replaces the current best only with a strictly higher score, so ties keep
// the earlier entry.
func (m *Matcher) Match(message string, catalog []KnownQuestion) MatchResult {
	if len(catalog) == 0 {
		return NoMatch
	}
	normalized := normalizeMessage(message)

	var (
		best      KnownQuestion
		bestScore float64
		found     bool
	)
	for _, candidate := range catalog {
		score := m.score(normalizeMessage(candidate.Question), normalized)
		if score > m.threshold && score > bestScore {
			best = candidate
			bestScore = score
			found = true
		}
	}
	if !found {
		return NoMatch
	}
	return Matched(best)
}
