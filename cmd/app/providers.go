package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/clinic-assistant/internal/bootstrap"
	"github.com/yanqian/clinic-assistant/internal/domain/auth"
	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/domain/intake"
	"github.com/yanqian/clinic-assistant/internal/domain/session"
	"github.com/yanqian/clinic-assistant/internal/infra/catalog"
	"github.com/yanqian/clinic-assistant/internal/infra/config"
	"github.com/yanqian/clinic-assistant/internal/infra/faqstore"
	"github.com/yanqian/clinic-assistant/internal/infra/historyrepo"
	"github.com/yanqian/clinic-assistant/internal/infra/llm"
	"github.com/yanqian/clinic-assistant/internal/infra/llm/chatgpt"
	"github.com/yanqian/clinic-assistant/internal/infra/sessionstore"
	"github.com/yanqian/clinic-assistant/internal/infra/storage"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

// historyBackend persists leads and chat exchanges in one store.
type historyBackend interface {
	conversation.LeadRepository
	conversation.HistoryRepository
}

func provideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

// providePostgresPool returns nil when no DSN is configured. Catalog and
// history providers fall back to memory implementations in that case.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func(), error) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil, func() {}, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	logger.Info("postgres enabled", "max_conns", poolConfig.MaxConns)
	return pool, pool.Close, nil
}

// provideValkeyClient returns nil when redis is disabled or unreachable so the
// stores degrade to process memory.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.Redis.Enabled {
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory stores", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory stores", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory stores", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey enabled", "addr", cfg.Redis.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Redis.Addr, "://") {
		return valkey.ParseURL(cfg.Redis.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Redis.Addr}}, nil
}

func redisPrefix(cfg *config.Config, name string) string {
	if cfg.Redis.Prefix == "" {
		return name
	}
	return cfg.Redis.Prefix + ":" + name
}

func provideFAQStore(cfg *config.Config, client valkey.Client) faq.Store {
	if client == nil {
		return faqstore.NewMemoryStore()
	}
	return faqstore.NewValkeyStore(client, redisPrefix(cfg, "faq"))
}

func provideSessionStore(cfg *config.Config, client valkey.Client) session.Store {
	if client == nil {
		return sessionstore.NewMemoryStore(cfg.Session.TTL, nil)
	}
	return sessionstore.NewValkeyStore(client, redisPrefix(cfg, "session"), cfg.Session.TTL)
}

func provideCatalogSource(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.CatalogSource, error) {
	clinicID := cfg.Clinic.ID
	switch cfg.FAQ.Catalog.Source {
	case config.CatalogFile:
		source, err := catalog.NewFileSource(cfg.FAQ.Catalog.Path, clinicID, logger)
		if err != nil {
			return nil, err
		}
		return source, nil
	case config.CatalogPostgres:
		if pool == nil {
			return nil, errors.New("postgres catalog source requires postgres.dsn")
		}
		return catalog.NewPostgresSource(pool), nil
	case config.CatalogObject:
		reader, err := storage.NewR2Reader(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.Region, logger)
		if err != nil {
			return nil, err
		}
		return catalog.NewObjectSource(reader, cfg.FAQ.Catalog.ObjectKey, clinicID, cfg.FAQ.Catalog.RefreshInterval, nil, logger), nil
	default:
		entries := make([]faq.KnownQuestion, 0, len(cfg.FAQ.Catalog.Entries))
		for _, e := range cfg.FAQ.Catalog.Entries {
			entries = append(entries, faq.KnownQuestion{Question: e.Question, Answer: e.Answer})
		}
		if len(entries) == 0 {
			logger.Warn("faq catalog is empty, every message will fall through to the generator")
		}
		return catalog.NewMemorySource(clinicID, entries), nil
	}
}

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		Algorithm:          faq.Algorithm(cfg.FAQ.Algorithm),
		Threshold:          cfg.FAQ.SimilarityThreshold,
		DefaultClinicID:    cfg.Clinic.ID,
		TopRecommendations: cfg.FAQ.TopRecommendations,
	}
}

func provideHistoryBackend(pool *pgxpool.Pool) historyBackend {
	if pool == nil {
		return historyrepo.NewMemoryRepository()
	}
	return historyrepo.NewPostgresRepository(pool)
}

func provideGenerator(cfg *config.Config, logger *slog.Logger) (conversation.Generator, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key not set, unmatched messages get the apology reply")
		return llm.UnavailableGenerator{}, nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	return llm.NewChatGPTGenerator(client, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens), nil
}

func provideIntakeMachine(cfg *config.Config) *intake.Machine {
	return intake.NewMachine(intake.Script{
		AskName:         cfg.Intake.AskName,
		AskService:      cfg.Intake.AskService,
		AskAvailability: cfg.Intake.AskAvailability,
		Confirmation:    cfg.Intake.Confirmation,
	})
}

func provideConversationConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		DefaultClinicID:    cfg.Clinic.ID,
		ClinicName:         cfg.Clinic.Name,
		Address:            cfg.Clinic.Address,
		LeadSource:         cfg.Clinic.LeadSource,
		SystemPrompt:       cfg.Clinic.SystemPrompt,
		GreetingKnown:      cfg.Clinic.GreetingKnown,
		GreetingAnonymous:  cfg.Clinic.GreetingAnonymous,
		AddressReply:       cfg.Clinic.AddressReply,
		ContinuationPrompt: cfg.Clinic.ContinuationPrompt,
		Apology:            cfg.Clinic.Apology,
		IntakeKeywords:     cfg.Intake.Keywords,
		AddressKeywords:    cfg.Clinic.AddressKeywords,
		Greetings:          cfg.Clinic.Greetings,
		GeneratorTimeout:   cfg.LLM.Timeout,
		GeneratorPerMinute: cfg.LLM.RequestsPerMinute,
		GeneratorBurst:     cfg.LLM.Burst,
	}
}

func provideConversationDeps(
	faqSvc faq.Service,
	machine *intake.Machine,
	sessions session.Store,
	backend historyBackend,
	generator conversation.Generator,
	m *metrics.ChatMetrics,
) conversation.Deps {
	return conversation.Deps{
		FAQ:       faqSvc,
		Intake:    machine,
		Sessions:  sessions,
		Leads:     backend,
		History:   backend,
		Generator: generator,
		Metrics:   m,
	}
}

// provideAuthService returns nil when no admin secret is configured, which
// keeps the admin API unmounted.
func provideAuthService(cfg *config.Config, logger *slog.Logger) (auth.Service, error) {
	if strings.TrimSpace(cfg.Admin.JWTSecret) == "" {
		return nil, nil
	}
	return auth.NewService(auth.Config{
		Secret:   cfg.Admin.JWTSecret,
		TokenTTL: cfg.Admin.TokenTTL,
		Issuer:   cfg.Admin.Issuer,
	}, nil, logger)
}

func provideTasks(cfg *config.Config, source faq.CatalogSource, sessions session.Store, logger *slog.Logger) bootstrap.Tasks {
	var tasks bootstrap.Tasks
	if fs, ok := source.(*catalog.FileSource); ok && cfg.FAQ.Catalog.Watch {
		tasks = append(tasks, func(ctx context.Context) {
			if err := fs.Watch(ctx); err != nil {
				logger.Error("catalog watcher failed to start", "error", err)
			}
		})
	}
	if mem, ok := sessions.(*sessionstore.MemoryStore); ok && cfg.Session.SweepInterval > 0 {
		tasks = append(tasks, func(ctx context.Context) {
			mem.RunSweeper(ctx, cfg.Session.SweepInterval)
		})
	}
	return tasks
}
