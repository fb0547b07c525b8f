package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/domain/intake"
	"github.com/yanqian/clinic-assistant/internal/domain/session"
	apperrors "github.com/yanqian/clinic-assistant/pkg/errors"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
	"github.com/yanqian/clinic-assistant/pkg/util"
)

// Service answers inbound patient messages.
type Service interface {
	Reply(ctx context.Context, msg InboundMessage) (Reply, error)
	// Reset forgets the conversation state of a phone number.
	Reset(ctx context.Context, phone string) error
}

// Deps groups the collaborators of the conversation service.
type Deps struct {
	FAQ       faq.Service
	Intake    *intake.Machine
	Sessions  session.Store
	Leads     LeadRepository
	History   HistoryRepository
	Generator Generator
	Metrics   *metrics.ChatMetrics
	Clock     util.Clock
}

type service struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
	now     util.Clock
	logger  *slog.Logger
}

// NewService wires the conversation flow.
func NewService(cfg Config, deps Deps, logger *slog.Logger) (Service, error) {
	if deps.FAQ == nil || deps.Sessions == nil || deps.Leads == nil || deps.History == nil {
		return nil, errors.New("conversation: faq, sessions, leads and history are required")
	}
	if deps.Intake == nil {
		deps.Intake = intake.NewMachine(intake.DefaultScript())
	}
	cfg = cfg.withDefaults()

	limit := rate.Inf
	if cfg.GeneratorPerMinute > 0 {
		limit = rate.Limit(cfg.GeneratorPerMinute / 60)
	}
	return &service{
		cfg:     cfg,
		deps:    deps,
		limiter: rate.NewLimiter(limit, cfg.GeneratorBurst),
		now:     deps.Clock.OrNow(),
		logger:  logger.With("component", "conversation.service"),
	}, nil
}

// turn carries the per-message working state.
type turn struct {
	msg      InboundMessage
	body     string
	text     string
	clinicID string
	sess     session.Session

	leadLoaded bool
	lead       Lead
}

func (s *service) Reply(ctx context.Context, msg InboundMessage) (Reply, error) {
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return Reply{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message body cannot be empty", nil)
	}
	if strings.TrimSpace(msg.From) == "" {
		return Reply{}, apperrors.Wrap(apperrors.CodeInvalidInput, "sender cannot be empty", nil)
	}
	key, err := session.NormalizePhone(msg.From)
	if err != nil {
		return Reply{}, apperrors.Wrap(apperrors.CodeInvalidInput, "sender is not a phone number", err)
	}

	sess, ok, err := s.deps.Sessions.Get(ctx, key)
	if err != nil {
		return Reply{}, apperrors.Wrap(apperrors.CodeSession, "load session failed", err)
	}
	if !ok {
		sess = session.Session{Key: key}
	}

	t := &turn{msg: msg, body: body, text: normalize(body), sess: sess}
	t.clinicID = firstNonEmpty(msg.ClinicID, sess.ClinicID, s.cfg.DefaultClinicID)
	t.sess.ClinicID = t.clinicID

	reply, err := s.route(ctx, t)
	if err != nil {
		return Reply{}, err
	}
	reply.SessionKey = key

	s.record(ctx, t, reply)
	s.deps.Metrics.ObserveReply(string(reply.Route))
	s.logger.Info("reply sent", "session", key, "clinic", t.clinicID, "route", reply.Route)
	return reply, nil
}

func (s *service) route(ctx context.Context, t *turn) (Reply, error) {
	if t.sess.IntakeState.InProgress() {
		return s.continueIntake(ctx, t)
	}

	match, err := s.deps.FAQ.Lookup(ctx, t.clinicID, t.body)
	if err != nil {
		s.logger.Warn("faq lookup failed, continuing without catalog", "clinic", t.clinicID, "error", err)
	} else if match.Matched {
		return Reply{Text: match.Answer, Route: RouteFAQ}, nil
	}

	if containsAny(t.text, s.cfg.IntakeKeywords) {
		start := s.deps.Intake.Start()
		t.sess.IntakeState = start.State
		t.sess.Lead = start.Lead
		return Reply{Text: s.greeting(ctx, t) + " " + start.Reply, Route: RouteIntake}, nil
	}
	if s.cfg.Address != "" && containsAny(t.text, s.cfg.AddressKeywords) {
		return Reply{Text: s.fill(s.cfg.AddressReply, nil), Route: RouteScripted}, nil
	}
	if last := normalize(t.sess.LastInteraction); last != "" && last != t.text && !s.isGreeting(t.text) {
		text := s.fill(s.cfg.ContinuationPrompt, map[string]string{
			"{greeting}": s.greeting(ctx, t),
			"{topic}":    t.sess.LastInteraction,
		})
		return Reply{Text: text, Route: RouteContinuation}, nil
	}
	return s.generate(ctx, t), nil
}

func (s *service) continueIntake(ctx context.Context, t *turn) (Reply, error) {
	tr, _ := s.deps.Intake.Advance(t.sess.IntakeState, t.sess.Lead, t.body)
	if tr.State != intake.StateComplete {
		t.sess.IntakeState = tr.State
		t.sess.Lead = tr.Lead
		return Reply{Text: tr.Reply, Route: RouteIntake}, nil
	}

	now := s.now()
	lead := Lead{
		Phone:        t.sess.Key,
		ClinicID:     t.clinicID,
		Name:         tr.Lead.Name,
		Service:      tr.Lead.Service,
		Availability: tr.Lead.Availability,
		Source:       s.cfg.LeadSource,
		CreatedAt:    now,
		LastContact:  now,
	}
	if err := s.deps.Leads.Upsert(ctx, lead); err != nil {
		return Reply{}, apperrors.Wrap(apperrors.CodePersistence, "save lead failed", err)
	}
	t.lead, t.leadLoaded = lead, true
	t.sess.IntakeState = intake.StateNone
	t.sess.Lead = intake.Lead{}
	return Reply{Text: tr.Reply, Route: RouteIntake}, nil
}

// generate asks the fallback generator. Failures become the apology reply.
func (s *service) generate(ctx context.Context, t *turn) Reply {
	if s.deps.Generator == nil {
		return Reply{Text: s.cfg.Apology, Route: RouteFallback}
	}

	req := GenerationRequest{System: s.fill(s.cfg.SystemPrompt, nil), Message: t.body}
	if lead := s.knownLead(ctx, t); lead.Name != "" {
		req.System += "\nThe patient's name is " + lead.Name + "."
	}
	if t.sess.LastInteraction != "" && t.sess.LastResponse != "" {
		req.History = []Turn{
			{Role: "user", Content: t.sess.LastInteraction},
			{Role: "assistant", Content: t.sess.LastResponse},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GeneratorTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("generator throttled", "session", t.sess.Key, "error", err)
		s.deps.Metrics.ObserveGenerator("throttled", 0, metrics.TokenUsage{})
		return Reply{Text: s.cfg.Apology, Route: RouteFallback}
	}

	started := time.Now()
	gen, err := s.deps.Generator.Generate(ctx, req)
	elapsed := time.Since(started).Seconds()
	if err == nil && strings.TrimSpace(gen.Text) == "" {
		err = errors.New("generator returned empty text")
	}
	if err != nil {
		s.deps.Metrics.ObserveGenerator("error", elapsed, gen.Usage)
		s.logger.Error("generator failed", "session", t.sess.Key, "error", apperrors.Wrap(apperrors.CodeLLM, "generate reply", err))
		return Reply{Text: s.cfg.Apology, Route: RouteFallback, Usage: gen.Usage}
	}
	s.deps.Metrics.ObserveGenerator("ok", elapsed, gen.Usage)
	return Reply{Text: strings.TrimSpace(gen.Text), Route: RouteLLM, Usage: gen.Usage}
}

// record stores the exchange and the updated session. Failures are logged so
// the patient still gets the reply.
func (s *service) record(ctx context.Context, t *turn, reply Reply) {
	now := s.now()
	ex := Exchange{
		ID:        uuid.New(),
		Phone:     t.sess.Key,
		ClinicID:  t.clinicID,
		Message:   t.body,
		Response:  reply.Text,
		Route:     reply.Route,
		CreatedAt: now,
	}
	if err := s.deps.History.Append(ctx, ex); err != nil {
		s.logger.Warn("append chat history failed", "session", t.sess.Key, "error", err)
	}

	t.sess.LastInteraction = t.body
	t.sess.LastResponse = reply.Text
	t.sess.UpdatedAt = now
	if err := s.deps.Sessions.Save(ctx, t.sess); err != nil {
		s.logger.Error("save session failed", "session", t.sess.Key, "error", apperrors.Wrap(apperrors.CodeSession, "save session", err))
	}
}

func (s *service) Reset(ctx context.Context, phone string) error {
	key, err := session.NormalizePhone(phone)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid phone number", err)
	}
	if err := s.deps.Sessions.Delete(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.CodeSession, "delete session failed", err)
	}
	s.logger.Info("session reset", "session", key)
	return nil
}

func (s *service) knownLead(ctx context.Context, t *turn) Lead {
	if t.leadLoaded {
		return t.lead
	}
	t.leadLoaded = true
	lead, ok, err := s.deps.Leads.FindByPhone(ctx, t.sess.Key)
	if err != nil {
		s.logger.Warn("lead lookup failed", "session", t.sess.Key, "error", err)
		return Lead{}
	}
	if ok {
		t.lead = lead
	}
	return t.lead
}

func (s *service) greeting(ctx context.Context, t *turn) string {
	if lead := s.knownLead(ctx, t); lead.Name != "" {
		return s.fill(s.cfg.GreetingKnown, map[string]string{"{name}": lead.Name})
	}
	return s.fill(s.cfg.GreetingAnonymous, nil)
}

func (s *service) isGreeting(text string) bool {
	for _, g := range s.cfg.Greetings {
		if text == normalize(g) {
			return true
		}
	}
	return false
}

func (s *service) fill(template string, vars map[string]string) string {
	pairs := []string{"{clinic}", s.cfg.ClinicName, "{address}", s.cfg.Address}
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw = normalize(kw); kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
