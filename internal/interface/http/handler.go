package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	conversationSvc conversation.Service
	faqSvc          faq.Service
	twilio          config.TwilioConfig
	logger          *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(conversationSvc conversation.Service, faqSvc faq.Service, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		conversationSvc: conversationSvc,
		faqSvc:          faqSvc,
		twilio:          cfg.Twilio,
		logger:          logger.With("component", "http.handler"),
	}
}

// WhatsAppWebhook answers a Twilio WhatsApp message with TwiML. The optional
// "clinic" query parameter selects the catalog.
func (h *Handler) WhatsAppWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "malformed form payload", err))
		return
	}
	form := c.Request.PostForm

	if h.twilio.AuthToken != "" {
		signature := c.GetHeader("X-Twilio-Signature")
		if !validTwilioSignature(h.twilio.AuthToken, h.webhookURL(c), signature, form) {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_signature", "twilio signature mismatch", nil))
			return
		}
	}

	from := strings.TrimSpace(form.Get("From"))
	body := strings.TrimSpace(form.Get("Body"))
	if from == "" || body == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "From and Body are required", nil))
		return
	}

	reply, err := h.conversationSvc.Reply(c.Request.Context(), conversation.InboundMessage{
		From:     from,
		Body:     body,
		ClinicID: c.Query("clinic"),
	})
	if err != nil {
		abortWithError(c, fromDomainError(err, "reply_failed"))
		return
	}

	payload, err := renderTwiML(reply.Text)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "render_failed", "could not render reply", err))
		return
	}
	h.logger.Debug("webhook answered", "sid", form.Get("MessageSid"), "to", form.Get("To"), "route", reply.Route)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", payload)
}

// webhookURL is the URL Twilio signed: the configured public URL when set,
// otherwise the URL this request arrived on.
func (h *Handler) webhookURL(c *gin.Context) string {
	if h.twilio.PublicURL != "" {
		if raw := c.Request.URL.RawQuery; raw != "" && !strings.Contains(h.twilio.PublicURL, "?") {
			return h.twilio.PublicURL + "?" + raw
		}
		return h.twilio.PublicURL
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

// MatchFAQ runs one catalog lookup for diagnostics.
func (h *Handler) MatchFAQ(c *gin.Context) {
	var req faq.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.faqSvc.Answer(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrendingFAQ returns the most matched catalog questions of ?clinic= (default clinic when absent).
func (h *Handler) TrendingFAQ(c *gin.Context) {
	items, err := h.faqSvc.Trending(c.Request.Context(), c.Query("clinic"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": items})
}

// ResetSession drops the conversation state of a phone number.
func (h *Handler) ResetSession(c *gin.Context) {
	phone := c.Param("phone")
	if err := h.conversationSvc.Reset(c.Request.Context(), phone); err != nil {
		abortWithError(c, fromDomainError(err, "reset_failed"))
		return
	}
	h.logger.Info("session reset by admin", "admin", adminSubject(c), "phone", phone)
	c.Status(http.StatusNoContent)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
