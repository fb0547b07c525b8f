package intake

import (
	"strings"
)

// State is a step of the intake conversation.
type State string

const (
	// StateNone means no intake is running.
	StateNone                 State = ""
	StateAwaitingName         State = "awaiting_name"
	StateAwaitingService      State = "awaiting_service"
	StateAwaitingAvailability State = "awaiting_availability"
	StateComplete             State = "complete"
)

// InProgress reports whether s expects another answer.
func (s State) InProgress() bool {
	switch s {
	case StateAwaitingName, StateAwaitingService, StateAwaitingAvailability:
		return true
	default:
		return false
	}
}

// Lead is what the intake collects about a prospective patient.
type Lead struct {
	Name         string `json:"name,omitempty"`
	Service      string `json:"service,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// Script holds the copy sent at each step. Confirmation may reference
// {name} and {service}.
type Script struct {
	AskName         string `yaml:"askName"`
	AskService      string `yaml:"askService"`
	AskAvailability string `yaml:"askAvailability"`
	Confirmation    string `yaml:"confirmation"`
}

// DefaultScript returns neutral copy used when none is configured.
func DefaultScript() Script {
	return Script{
		AskName:         "Happy to help you book a visit. What is your name?",
		AskService:      "Thanks, {name}. Which service are you interested in?",
		AskAvailability: "Which days and times work best for you?",
		Confirmation:    "Thank you, {name}. We received your request for {service} and our team will contact you shortly to confirm.",
	}
}

// withDefaults fills blank lines from DefaultScript.
func (s Script) withDefaults() Script {
	def := DefaultScript()
	if strings.TrimSpace(s.AskName) == "" {
		s.AskName = def.AskName
	}
	if strings.TrimSpace(s.AskService) == "" {
		s.AskService = def.AskService
	}
	if strings.TrimSpace(s.AskAvailability) == "" {
		s.AskAvailability = def.AskAvailability
	}
	if strings.TrimSpace(s.Confirmation) == "" {
		s.Confirmation = def.Confirmation
	}
	return s
}

// Transition is the outcome of feeding one message to the machine.
type Transition struct {
	State State
	Lead  Lead
	Reply string
}

// Machine drives the intake. It holds no per-conversation state, so one
// instance serves every session.
type Machine struct {
	script Script
}

// NewMachine builds a machine speaking script.
func NewMachine(script Script) *Machine {
	return &Machine{script: script.withDefaults()}
}

// Start begins a new intake.
func (m *Machine) Start() Transition {
	return Transition{State: StateAwaitingName, Reply: m.script.AskName}
}

// Advance consumes one answer. It returns ok=false when state does not
// expect an answer. A blank answer repeats the pending question.
func (m *Machine) Advance(state State, lead Lead, message string) (Transition, bool) {
	if !state.InProgress() {
		return Transition{State: state, Lead: lead}, false
	}
	answer := strings.TrimSpace(message)
	if answer == "" {
		return Transition{State: state, Lead: lead, Reply: m.prompt(state, lead)}, true
	}

	switch state {
	case StateAwaitingName:
		lead.Name = answer
		state = StateAwaitingService
	case StateAwaitingService:
		lead.Service = answer
		state = StateAwaitingAvailability
	case StateAwaitingAvailability:
		lead.Availability = answer
		state = StateComplete
	}
	return Transition{State: state, Lead: lead, Reply: m.prompt(state, lead)}, true
}

func (m *Machine) prompt(state State, lead Lead) string {
	var text string
	switch state {
	case StateAwaitingName:
		text = m.script.AskName
	case StateAwaitingService:
		text = m.script.AskService
	case StateAwaitingAvailability:
		text = m.script.AskAvailability
	case StateComplete:
		text = m.script.Confirmation
	}
	return fill(text, lead)
}

func fill(text string, lead Lead) string {
	return strings.NewReplacer("{name}", lead.Name, "{service}", lead.Service).Replace(text)
}
