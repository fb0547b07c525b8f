package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/clinic-assistant/internal/domain/auth"
	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
	apperrors "github.com/yanqian/clinic-assistant/pkg/errors"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

const testSecret = "router-secret"

type stubConversation struct {
	replyFn func(ctx context.Context, msg conversation.InboundMessage) (conversation.Reply, error)
	resets  []string
}

func (s *stubConversation) Reply(ctx context.Context, msg conversation.InboundMessage) (conversation.Reply, error) {
	if s.replyFn != nil {
		return s.replyFn(ctx, msg)
	}
	return conversation.Reply{Text: "ok", Route: conversation.RouteFAQ}, nil
}

func (s *stubConversation) Reset(_ context.Context, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid phone number", nil)
	}
	s.resets = append(s.resets, phone)
	return nil
}

type stubFAQ struct {
	answerFn       func(ctx context.Context, req faq.Request) (faq.Response, error)
	trending       []faq.TrendingQuery
	trendingClinic string
}

func (s *stubFAQ) Lookup(context.Context, string, string) (faq.MatchResult, error) {
	return faq.NoMatch, nil
}

func (s *stubFAQ) Answer(ctx context.Context, req faq.Request) (faq.Response, error) {
	if s.answerFn != nil {
		return s.answerFn(ctx, req)
	}
	return faq.Response{Question: req.Question}, nil
}

func (s *stubFAQ) Trending(_ context.Context, clinicID string) ([]faq.TrendingQuery, error) {
	s.trendingClinic = clinicID
	return s.trending, nil
}

type routerFixture struct {
	server *http.Server
	conv   *stubConversation
	faq    *stubFAQ
	auth   auth.Service
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			Retry: config.RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: time.Millisecond,
				Exclude:     []string{"/webhooks/"},
			},
		},
	}
}

func newRouterUnderTest(t *testing.T, cfg *config.Config, withAuth bool) *routerFixture {
	t.Helper()
	f := &routerFixture{conv: &stubConversation{}, faq: &stubFAQ{}}
	var authSvc auth.Service
	if withAuth {
		svc, err := auth.NewService(auth.Config{Secret: testSecret, TokenTTL: time.Hour}, nil, newTestLogger())
		require.NoError(t, err)
		authSvc = svc
		f.auth = svc
	}
	reg := prometheus.NewRegistry()
	metrics.NewChatMetrics(reg).ObserveReply("faq")
	handler := NewHandler(f.conv, f.faq, cfg, newTestLogger())
	f.server = NewRouter(cfg, handler, authSvc, reg)
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) adminRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	issued, err := f.auth.IssueToken("ops")
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	return req
}

func webhookRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRouter_WebhookRepliesWithTwiML(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)
	f.conv.replyFn = func(_ context.Context, msg conversation.InboundMessage) (conversation.Reply, error) {
		require.Equal(t, "whatsapp:+5511999990000", msg.From)
		require.Equal(t, "Qual o horário?", msg.Body)
		require.Equal(t, "downtown", msg.ClinicID)
		return conversation.Reply{Text: "Das 8h às 18h <seg & sex>", Route: conversation.RouteFAQ}, nil
	}

	rec := f.do(webhookRequest("/webhooks/whatsapp?clinic=downtown", url.Values{
		"From":       {"whatsapp:+5511999990000"},
		"Body":       {"Qual o horário?"},
		"To":         {"whatsapp:+14155238886"},
		"MessageSid": {"SM123"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<Response><Message>Das 8h às 18h &lt;seg &amp; sex&gt;</Message></Response>`,
		rec.Body.String())
}

func TestRouter_WebhookRejectsMissingFields(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)
	rec := f.do(webhookRequest("/webhooks/whatsapp", url.Values{"From": {"whatsapp:+1"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_WebhookMapsDomainErrors(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)
	f.conv.replyFn = func(context.Context, conversation.InboundMessage) (conversation.Reply, error) {
		return conversation.Reply{}, apperrors.Wrap(apperrors.CodeInvalidInput, "sender is not a phone number", nil)
	}
	rec := f.do(webhookRequest("/webhooks/whatsapp", url.Values{"From": {"x"}, "Body": {"oi"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, apperrors.CodeInvalidInput, body["error"]["code"])
	require.Equal(t, "sender is not a phone number", body["error"]["message"])
}

func TestRouter_WebhookIsNotRetried(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)
	calls := 0
	f.conv.replyFn = func(context.Context, conversation.InboundMessage) (conversation.Reply, error) {
		calls++
		return conversation.Reply{}, apperrors.Wrap(apperrors.CodeSession, "load session failed", nil)
	}
	rec := f.do(webhookRequest("/webhooks/whatsapp", url.Values{"From": {"+1"}, "Body": {"oi"}}))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, 1, calls)
}

func TestRouter_WebhookSignature(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio.AuthToken = "twilio-token"
	f := newRouterUnderTest(t, cfg, false)
	form := url.Values{"From": {"whatsapp:+1"}, "Body": {"oi"}, "MessageSid": {"SM1"}}

	unsigned := f.do(webhookRequest("/webhooks/whatsapp", form))
	require.Equal(t, http.StatusForbidden, unsigned.Code)

	req := webhookRequest("/webhooks/whatsapp", form)
	req.Header.Set("X-Twilio-Signature", twilioSignature("twilio-token", "http://example.com/webhooks/whatsapp", form))
	require.Equal(t, http.StatusOK, f.do(req).Code)

	cfg.Twilio.PublicURL = "https://bot.example.org/webhooks/whatsapp"
	public := newRouterUnderTest(t, cfg, false)
	req = webhookRequest("/webhooks/whatsapp?clinic=a", form)
	req.Header.Set("X-Twilio-Signature", twilioSignature("twilio-token", "https://bot.example.org/webhooks/whatsapp?clinic=a", form))
	require.Equal(t, http.StatusOK, public.do(req).Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	rec := f.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = f.do(req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, apperrors.CodeInvalidToken, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_AdminFAQ(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), true)
	f.faq.trending = []faq.TrendingQuery{{Query: "Qual o horário?", Count: 3}}
	f.faq.answerFn = func(_ context.Context, req faq.Request) (faq.Response, error) {
		require.Equal(t, "main", req.ClinicID)
		return faq.Response{Question: req.Question, Matched: true, Answer: "8h", Algorithm: faq.AlgorithmRatcliffObershelp}, nil
	}

	rec := f.do(f.adminRequest(t, http.MethodPost, "/api/v1/faq/match", `{"clinicId":"main","question":"horário?"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp faq.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Matched)
	require.Equal(t, "8h", resp.Answer)

	rec = f.do(f.adminRequest(t, http.MethodGet, "/api/v1/faq/trending?clinic=north", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "north", f.faq.trendingClinic)
	var trending struct {
		Recommendations []faq.TrendingQuery `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trending))
	require.Equal(t, f.faq.trending, trending.Recommendations)
}

func TestRouter_AdminFAQInvalidJSON(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), true)
	rec := f.do(f.adminRequest(t, http.MethodPost, "/api/v1/faq/match", `{"question":123}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_AdminFAQRetriesTransientFailure(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), true)
	calls := 0
	f.faq.answerFn = func(_ context.Context, req faq.Request) (faq.Response, error) {
		calls++
		if calls == 1 {
			return faq.Response{}, apperrors.Wrap(apperrors.CodeCatalog, "catalog snapshot failed", nil)
		}
		return faq.Response{Question: req.Question}, nil
	}
	rec := f.do(f.adminRequest(t, http.MethodPost, "/api/v1/faq/match", `{"question":"oi"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)
}

func TestRouter_AdminResetSession(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), true)
	rec := f.do(f.adminRequest(t, http.MethodDelete, "/api/v1/sessions/+5511999990000", ""))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"+5511999990000"}, f.conv.resets)
}

func TestRouter_AdminDisabledWithoutAuth(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/faq/trending", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigins = []string{"https://dashboard.example.com"}
	f := newRouterUnderTest(t, cfg, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/faq/match", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newRouterUnderTest(t, testConfig(), false)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `clinic_chat_replies_total{route="faq"} 1`)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	f := newRouterUnderTest(t, cfg, false)

	require.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRetryExcluded(t *testing.T) {
	exclude := []string{"/webhooks/", "/api/v1/exact"}
	require.True(t, retryExcluded("/webhooks/whatsapp", exclude))
	require.True(t, retryExcluded("/api/v1/exact", exclude))
	require.False(t, retryExcluded("/api/v1/exact/more", exclude))
	require.False(t, retryExcluded("/api/v1/faq/match", exclude))
}

func TestRenderTwiMLEmpty(t *testing.T) {
	out, err := renderTwiML("")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(out), "<Response></Response>"))
}

func TestRouter_CORSUnknownOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigins = []string{"https://dashboard.example.com/"}
	f := newRouterUnderTest(t, cfg, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/faq/match", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := f.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	token, err := bearerToken("Bearer abc.def")
	require.NoError(t, err)
	require.Equal(t, "abc.def", token)

	token, err = bearerToken("bearer   xyz ")
	require.NoError(t, err)
	require.Equal(t, "xyz", token)

	_, err = bearerToken("")
	require.ErrorIs(t, err, errMissingBearer)
	_, err = bearerToken("Basic dXNlcg==")
	require.ErrorIs(t, err, errMalformedBearer)
	_, err = bearerToken("Bearer ")
	require.ErrorIs(t, err, errMalformedBearer)
}

func TestBackoffDoubles(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, 1))
	require.Equal(t, 400*time.Millisecond, backoff(100*time.Millisecond, 3))
	require.True(t, transientStatus(http.StatusServiceUnavailable))
	require.False(t, transientStatus(http.StatusInternalServerError))
}
