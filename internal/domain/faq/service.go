package faq

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/clinic-assistant/pkg/errors"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

// Service exposes catalog lookups backed by the Matcher.
type Service interface {
	// Lookup matches message against the clinic's current catalog snapshot.
	Lookup(ctx context.Context, clinicID, message string) (MatchResult, error)
	Answer(ctx context.Context, req Request) (Response, error)
	// Trending lists the clinic's most matched catalog questions.
	Trending(ctx context.Context, clinicID string) ([]TrendingQuery, error)
}

type service struct {
	cfg     Config
	matcher *Matcher
	source  CatalogSource
	store   Store
	metrics *metrics.ChatMetrics
	logger  *slog.Logger
}

// NewService wires up the FAQ domain.
func NewService(cfg Config, source CatalogSource, store Store, m *metrics.ChatMetrics, logger *slog.Logger) (Service, error) {
	matcher, err := NewMatcher(MatcherConfig{Algorithm: cfg.Algorithm, Threshold: cfg.Threshold})
	if err != nil {
		return nil, err
	}
	return &service{
		cfg:     cfg,
		matcher: matcher,
		source:  source,
		store:   store,
		metrics: m,
		logger:  logger.With("component", "faq.service"),
	}, nil
}

func (s *service) Lookup(ctx context.Context, clinicID, message string) (MatchResult, error) {
	clinicID = s.clinic(clinicID)
	catalog, err := s.source.Snapshot(ctx, clinicID)
	if err != nil {
		return NoMatch, apperrors.Wrap(apperrors.CodeCatalog, "catalog snapshot failed", err)
	}

	result := s.matcher.Match(message, catalog)
	s.metrics.ObserveLookup(result.Matched)
	if !result.Matched {
		return result, nil
	}

	if err := s.store.IncrementQuery(ctx, clinicID, canonicalQuery(result.Question), result.Question); err != nil {
		s.logger.Warn("faq trending increment failed", "clinic", clinicID, "error", err)
	}
	return result, nil
}

func (s *service) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}

	result, err := s.Lookup(ctx, req.ClinicID, question)
	if err != nil {
		return Response{}, err
	}

	recs, err := s.store.TopQueries(ctx, s.clinic(req.ClinicID), s.cfg.TopRecommendations)
	if err != nil {
		s.logger.Warn("faq trending fetch failed", "clinic", req.ClinicID, "error", err)
		recs = nil
	}

	return Response{
		Question:        question,
		Matched:         result.Matched,
		Answer:          result.Answer,
		MatchedQuestion: result.Question,
		Algorithm:       s.matcher.Algorithm(),
		Recommendations: recs,
	}, nil
}

func (s *service) Trending(ctx context.Context, clinicID string) ([]TrendingQuery, error) {
	recs, err := s.store.TopQueries(ctx, s.clinic(clinicID), s.cfg.TopRecommendations)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePersistence, "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) clinic(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.cfg.DefaultClinicID
}
