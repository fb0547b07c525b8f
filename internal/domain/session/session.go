package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yanqian/clinic-assistant/internal/domain/intake"
)

// DefaultTTL is how long an idle conversation is remembered.
const DefaultTTL = 30 * time.Minute

// ErrInvalidPhone is returned when a sender carries no digits.
var ErrInvalidPhone = errors.New("phone number has no digits")

// Session is the per-sender conversation state.
type Session struct {
	Key             string       `json:"key"`
	ClinicID        string       `json:"clinicId,omitempty"`
	IntakeState     intake.State `json:"intakeState,omitempty"`
	Lead            intake.Lead  `json:"lead"`
	LastInteraction string       `json:"lastInteraction,omitempty"`
	LastResponse    string       `json:"lastResponse,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Store persists sessions with an inactivity TTL applied on every Save.
type Store interface {
	// Get returns the session and whether it exists and has not expired.
	Get(ctx context.Context, key string) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, key string) error
}

// NormalizePhone turns a sender such as "whatsapp:+55 (11) 99999-0000" into
// "+5511999990000".
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
