package conversation

import (
	"strings"
	"time"
)

// Config holds the clinic copy and routing knobs. Templates accept {name},
// {greeting}, {topic}, {address} and {clinic}.
type Config struct {
	DefaultClinicID string
	ClinicName      string
	Address         string
	LeadSource      string

	SystemPrompt       string
	GreetingKnown      string
	GreetingAnonymous  string
	AddressReply       string
	ContinuationPrompt string
	Apology            string

	IntakeKeywords  []string
	AddressKeywords []string
	Greetings       []string

	GeneratorTimeout time.Duration
	// GeneratorPerMinute throttles generator calls; zero disables throttling.
	GeneratorPerMinute float64
	GeneratorBurst     int
}

// DefaultConfig returns neutral copy. Keywords follow the Portuguese-speaking
// clinics the assistant was built for.
func DefaultConfig() Config {
	return Config{
		DefaultClinicID:    "default",
		ClinicName:         "the clinic",
		LeadSource:         "whatsapp",
		SystemPrompt:       "You are the friendly virtual assistant of {clinic}. Answer briefly and never give medical diagnoses.",
		GreetingKnown:      "Hello {name}, how are you?",
		GreetingAnonymous:  "Hello, how are you?",
		AddressReply:       "We are located at {address}.",
		ContinuationPrompt: "{greeting} Would you like to keep talking about '{topic}' or do you need something else?",
		Apology:            "Sorry, I could not answer right now. Our team will get back to you soon.",
		IntakeKeywords:     []string{"consulta", "agendar"},
		AddressKeywords:    []string{"endereço", "onde fica"},
		Greetings:          []string{"olá", "ola", "oi", "tudo bem?", "bom dia", "boa tarde", "boa noite"},
		GeneratorTimeout:   20 * time.Second,
		GeneratorPerMinute: 60,
		GeneratorBurst:     5,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	setString := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	setString(&c.DefaultClinicID, def.DefaultClinicID)
	setString(&c.ClinicName, def.ClinicName)
	setString(&c.LeadSource, def.LeadSource)
	setString(&c.SystemPrompt, def.SystemPrompt)
	setString(&c.GreetingKnown, def.GreetingKnown)
	setString(&c.GreetingAnonymous, def.GreetingAnonymous)
	setString(&c.AddressReply, def.AddressReply)
	setString(&c.ContinuationPrompt, def.ContinuationPrompt)
	setString(&c.Apology, def.Apology)
	if c.IntakeKeywords == nil {
		c.IntakeKeywords = def.IntakeKeywords
	}
	if c.AddressKeywords == nil {
		c.AddressKeywords = def.AddressKeywords
	}
	if c.Greetings == nil {
		c.Greetings = def.Greetings
	}
	if c.GeneratorTimeout <= 0 {
		c.GeneratorTimeout = def.GeneratorTimeout
	}
	if c.GeneratorBurst <= 0 {
		c.GeneratorBurst = 1
	}
	return c
}
