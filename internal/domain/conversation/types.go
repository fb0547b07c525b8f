package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

// Route names the branch that produced a reply.
type Route string

const (
	RouteIntake       Route = "intake"
	RouteFAQ          Route = "faq"
	RouteScripted     Route = "scripted"
	RouteContinuation Route = "continuation"
	RouteLLM          Route = "llm"
	RouteFallback     Route = "fallback"
)

// InboundMessage is one message received from a patient.
type InboundMessage struct {
	From     string
	Body     string
	ClinicID string
}

// Reply is the text to send back plus how it was produced.
type Reply struct {
	Text       string             `json:"text"`
	Route      Route              `json:"route"`
	SessionKey string             `json:"sessionKey"`
	Usage      metrics.TokenUsage `json:"usage,omitempty"`
}

// Lead is a prospective patient known to the clinic.
type Lead struct {
	Phone        string
	ClinicID     string
	Name         string
	Service      string
	Availability string
	Source       string
	CreatedAt    time.Time
	LastContact  time.Time
}

// LeadRepository persists leads keyed by normalized phone.
type LeadRepository interface {
	FindByPhone(ctx context.Context, phone string) (Lead, bool, error)
	Upsert(ctx context.Context, lead Lead) error
}

// Exchange is one message and the reply sent for it.
type Exchange struct {
	ID        uuid.UUID
	Phone     string
	ClinicID  string
	Message   string
	Response  string
	Route     Route
	CreatedAt time.Time
}

// HistoryRepository records exchanges for later review.
type HistoryRepository interface {
	Append(ctx context.Context, ex Exchange) error
}

// Turn is one prior message given to the generator as context.
type Turn struct {
	Role    string
	Content string
}

// GenerationRequest is the prompt handed to the fallback generator.
type GenerationRequest struct {
	System  string
	History []Turn
	Message string
}

// Generation is the generator's answer.
type Generation struct {
	Text  string
	Usage metrics.TokenUsage
}

// Generator produces free-form answers when nothing scripted applies.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (Generation, error)
}
