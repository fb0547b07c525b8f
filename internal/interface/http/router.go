package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/clinic-assistant/internal/domain/auth"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// Admin routes are only mounted when authSvc is non-nil.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, gatherer prometheus.Gatherer) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger := handler.logger

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.POST("/webhooks/whatsapp", handler.WhatsAppWebhook)

	api := router.Group("/api/v1", corsMiddleware(cfg.HTTP.CORSOrigins))
	api.OPTIONS("/*path", func(*gin.Context) {})
	if authSvc != nil {
		api.Use(requireAdmin(authSvc))
		api.POST("/faq/match", handler.MatchFAQ)
		api.GET("/faq/trending", handler.TrendingFAQ)
		api.DELETE("/sessions/:phone", handler.ResetSession)
	} else {
		logger.Warn("admin api disabled: no jwt secret configured")
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
