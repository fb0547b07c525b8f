package faq

// KnownQuestion is a question/answer pair maintained by the clinic.
type KnownQuestion struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// MatchResult is the binary outcome of a lookup: an answer or nothing.
type MatchResult struct {
	Matched bool
	Answer  string
	// Question is the catalog entry that produced Answer.
	Question string
}

// NoMatch signals that the caller should fall back to the generator.
var NoMatch = MatchResult{}

// Matched builds a positive result for the given catalog entry.
func Matched(q KnownQuestion) MatchResult {
	return MatchResult{Matched: true, Answer: q.Answer, Question: q.Question}
}

// Request encapsulates a FAQ lookup issued through the admin API.
type Request struct {
	ClinicID string `json:"clinicId"`
	Question string `json:"question"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Question        string          `json:"question"`
	Matched         bool            `json:"matched"`
	Answer          string          `json:"answer,omitempty"`
	MatchedQuestion string          `json:"matchedQuestion,omitempty"`
	Algorithm       Algorithm       `json:"algorithm"`
	Recommendations []TrendingQuery `json:"recommendations"`
}

// TrendingQuery represents a frequently matched question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
