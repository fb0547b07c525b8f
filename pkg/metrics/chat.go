package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the conversation flow.
type ChatMetrics struct {
	repliesTotal     *prometheus.CounterVec
	faqLookups       *prometheus.CounterVec
	generatorLatency *prometheus.HistogramVec
	generatorTokens  *prometheus.CounterVec
}

// NewChatMetrics registers the collectors on reg, or the default registerer when nil.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Replies sent, labelled by the route that produced them",
		}, []string{"route"}),
		faqLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "faq",
			Name:      "lookups_total",
			Help:      "FAQ matcher lookups by outcome",
		}, []string{"outcome"}),
		generatorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "chat",
			Name:      "generator_latency_seconds",
			Help:      "Latency of fallback generator calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		generatorTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "chat",
			Name:      "generator_tokens_total",
			Help:      "Tokens consumed by fallback generator calls",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.faqLookups, m.generatorLatency, m.generatorTokens)
	return m
}

func (m *ChatMetrics) ObserveReply(route string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(route).Inc()
}

func (m *ChatMetrics) ObserveLookup(matched bool) {
	if m == nil {
		return
	}
	outcome := "no_match"
	if matched {
		outcome = "matched"
	}
	m.faqLookups.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveGenerator(status string, seconds float64, usage TokenUsage) {
	if m == nil {
		return
	}
	m.generatorLatency.WithLabelValues(status).Observe(seconds)
	if usage.IsZero() {
		return
	}
	m.generatorTokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	m.generatorTokens.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
}

// TokenUsage is the token accounting of one generator call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether the provider returned no usage data.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}
