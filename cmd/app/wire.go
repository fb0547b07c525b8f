//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/clinic-assistant/internal/bootstrap"
	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
	httpiface "github.com/yanqian/clinic-assistant/internal/interface/http"
	"github.com/yanqian/clinic-assistant/pkg/logger"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRegisterer,
		provideGatherer,
		metrics.NewChatMetrics,
		providePostgresPool,
		provideValkeyClient,
		provideFAQStore,
		provideSessionStore,
		provideCatalogSource,
		provideFAQConfig,
		faq.NewService,
		provideHistoryBackend,
		provideGenerator,
		provideIntakeMachine,
		provideConversationConfig,
		provideConversationDeps,
		conversation.NewService,
		provideAuthService,
		provideTasks,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
