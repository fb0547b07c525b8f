package faq_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/internal/infra/catalog"
	"github.com/yanqian/clinic-assistant/internal/infra/faqstore"
	apperrors "github.com/yanqian/clinic-assistant/pkg/errors"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

var clinicCatalog = []faq.KnownQuestion{
	{Question: "Qual o horário de funcionamento?", Answer: "Atendemos de segunda a sexta, das 8h às 18h."},
	{Question: "Vocês aceitam convênio?", Answer: "Aceitamos os principais convênios."},
	{Question: "Onde fica a clínica?", Answer: "Rua das Flores, 100."},
}

type failingSource struct{}

func (failingSource) Snapshot(context.Context, string) ([]faq.KnownQuestion, error) {
	return nil, errors.New("catalog offline")
}

type failingStore struct{}

func (failingStore) IncrementQuery(context.Context, string, string, string) error {
	return errors.New("valkey down")
}

func (failingStore) TopQueries(context.Context, string, int) ([]faq.TrendingQuery, error) {
	return nil, errors.New("valkey down")
}

func newTestService(t *testing.T, source faq.CatalogSource, store faq.Store, m *metrics.ChatMetrics) faq.Service {
	t.Helper()
	svc, err := faq.NewService(faq.Config{
		Algorithm:          faq.AlgorithmRatcliffObershelp,
		Threshold:          faq.DefaultThreshold,
		DefaultClinicID:    "main",
		TopRecommendations: 5,
	}, source, store, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc
}

func TestServiceLookupRecordsTrending(t *testing.T) {
	ctx := context.Background()
	store := faqstore.NewMemoryStore()
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)
	svc := newTestService(t, catalog.NewMemorySource("main", clinicCatalog), store, m)

	res, err := svc.Lookup(ctx, "", "qual o horario de funcionamento")
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, clinicCatalog[0].Answer, res.Answer)

	res, err = svc.Lookup(ctx, "main", "vocês vendem carros?")
	require.NoError(t, err)
	require.False(t, res.Matched)

	top, err := svc.Trending(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []faq.TrendingQuery{{Query: clinicCatalog[0].Question, Count: 1}}, top)

	other, err := svc.Trending(ctx, "elsewhere")
	require.NoError(t, err)
	require.Empty(t, other)

	expected := `
# HELP clinic_faq_lookups_total FAQ matcher lookups by outcome
# TYPE clinic_faq_lookups_total counter
clinic_faq_lookups_total{outcome="matched"} 1
clinic_faq_lookups_total{outcome="no_match"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_faq_lookups_total"))
}

func TestServiceLookupUnknownClinicIsEmpty(t *testing.T) {
	svc := newTestService(t, catalog.NewMemorySource("main", clinicCatalog), faqstore.NewMemoryStore(), nil)
	res, err := svc.Lookup(context.Background(), "elsewhere", "Qual o horário de funcionamento?")
	require.NoError(t, err)
	require.Equal(t, faq.NoMatch, res)
}

func TestServiceLookupCatalogError(t *testing.T) {
	svc := newTestService(t, failingSource{}, faqstore.NewMemoryStore(), nil)
	_, err := svc.Lookup(context.Background(), "main", "horário")
	require.True(t, apperrors.IsCode(err, apperrors.CodeCatalog))
}

func TestServiceStoreFailureDoesNotBreakLookup(t *testing.T) {
	svc := newTestService(t, catalog.NewMemorySource("main", clinicCatalog), failingStore{}, nil)

	res, err := svc.Lookup(context.Background(), "main", "Onde fica a clínica?")
	require.NoError(t, err)
	require.True(t, res.Matched)

	resp, err := svc.Answer(context.Background(), faq.Request{Question: "Onde fica a clínica?"})
	require.NoError(t, err)
	require.True(t, resp.Matched)
	require.Empty(t, resp.Recommendations)

	_, err = svc.Trending(context.Background(), "main")
	require.True(t, apperrors.IsCode(err, apperrors.CodePersistence))
}

func TestServiceAnswer(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, catalog.NewMemorySource("main", clinicCatalog), faqstore.NewMemoryStore(), nil)

	resp, err := svc.Answer(ctx, faq.Request{ClinicID: "main", Question: "  Vocês aceitam convênio?  "})
	require.NoError(t, err)
	require.Equal(t, "Vocês aceitam convênio?", resp.Question)
	require.True(t, resp.Matched)
	require.Equal(t, clinicCatalog[1].Question, resp.MatchedQuestion)
	require.Equal(t, faq.AlgorithmRatcliffObershelp, resp.Algorithm)
	require.Len(t, resp.Recommendations, 1)

	_, err = svc.Answer(ctx, faq.Request{Question: "   "})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestNewServiceRejectsBadThreshold(t *testing.T) {
	_, err := faq.NewService(faq.Config{Threshold: 1.5}, catalog.NewMemorySource("main", nil), faqstore.NewMemoryStore(), nil, slog.Default())
	require.Error(t, err)
}
