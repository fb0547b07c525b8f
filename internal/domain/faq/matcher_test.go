package faq

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func clinicCatalog() []KnownQuestion {
	return []KnownQuestion{
		{Question: "Qual o horário de atendimento?", Answer: "Seg-Sex 8h-19h"},
		{Question: "Onde fica a clínica?", Answer: "Rua das Flores, 100"},
		{Question: "Vocês aceitam convênio?", Answer: "Trabalhamos com os principais convênios."},
		{Question: "Quanto custa uma limpeza?", Answer: "A limpeza custa a partir de R$ 150."},
		{Question: "Fazem implante dentário?", Answer: "Sim, fazemos implantes."},
	}
}

func TestMatcher_Scenarios(t *testing.T) {
	m := DefaultMatcher()
	hours := []KnownQuestion{{Question: "Qual o horário de atendimento?", Answer: "Seg-Sex 8h-19h"}}

	t.Run("accentless paraphrase matches", func(t *testing.T) {
		got := m.Match("qual o horario de atendimento", hours)
		require.Equal(t, Matched(hours[0]), got)
	})

	t.Run("unrelated message falls through", func(t *testing.T) {
		require.Equal(t, NoMatch, m.Match("vocês vendem carros?", hours))
	})

	t.Run("short greeting prefers exact entry", func(t *testing.T) {
		catalog := []KnownQuestion{
			{Question: "oi", Answer: "Olá!"},
			{Question: "oi tudo bem", Answer: "Olá, tudo ótimo!"},
		}
		got := m.Match("oi", catalog)
		require.True(t, got.Matched)
		require.Equal(t, "Olá!", got.Answer)
	})

	t.Run("empty catalog never matches", func(t *testing.T) {
		require.Equal(t, NoMatch, m.Match("qual o horario de atendimento", nil))
		require.Equal(t, NoMatch, m.Match("oi", []KnownQuestion{}))
	})
}

func TestMatcher_VerbatimQuestionAlwaysMatches(t *testing.T) {
	m := DefaultMatcher()
	catalog := clinicCatalog()
	for _, q := range catalog {
		got := m.Match(q.Question, catalog)
		require.Equal(t, Matched(q), got, "question %q", q.Question)
	}
}

func TestMatcher_CaseInsensitive(t *testing.T) {
	m := DefaultMatcher()
	catalog := clinicCatalog()
	messages := []string{
		"qual o horario de atendimento",
		"onde fica a clinica",
		"aceitam convenio?",
		"quanto custa limpeza",
		"preciso remarcar minha consulta",
		"  Fazem implante dentário?  ",
	}
	for _, msg := range messages {
		require.Equal(t, m.Match(msg, catalog), m.Match(strings.ToUpper(msg), catalog), "message %q", msg)
	}
}

func TestMatcher_ThresholdIsStrict(t *testing.T) {
	m := DefaultMatcher()
	// "abcde" vs "abcxy" shares three of ten characters: ratio exactly 0.6.
	catalog := []KnownQuestion{{Question: "abcde", Answer: "boundary"}}
	require.InDelta(t, 0.6, RatcliffObershelp("abcde", "abcxy"), 1e-12)
	require.Equal(t, NoMatch, m.Match("abcxy", catalog))

	// one more shared character lifts it above the cutoff
	require.True(t, m.Match("abcdy", catalog).Matched)
}

func TestMatcher_NoCandidateAboveThreshold(t *testing.T) {
	m := DefaultMatcher()
	catalog := clinicCatalog()
	msg := "vocês vendem carros?"
	for _, q := range catalog {
		require.LessOrEqual(t, RatcliffObershelp(normalizeMessage(q.Question), normalizeMessage(msg)), DefaultThreshold)
	}
	require.Equal(t, NoMatch, m.Match(msg, catalog))
}

func TestMatcher_TieKeepsCatalogOrder(t *testing.T) {
	m := DefaultMatcher()
	catalog := []KnownQuestion{
		{Question: "abce", Answer: "first"},
		{Question: "abcf", Answer: "second"},
	}
	require.Equal(t, RatcliffObershelp("abce", "abcd"), RatcliffObershelp("abcf", "abcd"))
	require.Equal(t, "first", m.Match("abcd", catalog).Answer)

	reversed := []KnownQuestion{catalog[1], catalog[0]}
	require.Equal(t, "second", m.Match("abcd", reversed).Answer)
}

func TestMatcher_DuplicateQuestionsFirstWins(t *testing.T) {
	m := DefaultMatcher()
	catalog := []KnownQuestion{
		{Question: "Vocês abrem sábado?", Answer: "Sim, das 9h às 16h."},
		{Question: "vocês abrem sábado?", Answer: "Não abrimos."},
	}
	require.Equal(t, "Sim, das 9h às 16h.", m.Match("vocês abrem sábado?", catalog).Answer)
}

func TestMatcher_LaterEntryWinsOnlyWhenStrictlyBetter(t *testing.T) {
	m := DefaultMatcher()
	catalog := []KnownQuestion{
		{Question: "qual o valor do clareamento?", Answer: "clareamento"},
		{Question: "qual o valor da limpeza?", Answer: "limpeza"},
	}
	require.Equal(t, "limpeza", m.Match("qual o valor da limpeza", catalog).Answer)
}

func TestMatcher_SubstringAlgorithm(t *testing.T) {
	m, err := NewMatcher(MatcherConfig{Algorithm: AlgorithmSubstring, Threshold: DefaultThreshold})
	require.NoError(t, err)
	require.Equal(t, AlgorithmSubstring, m.Algorithm())

	catalog := []KnownQuestion{
		{Question: "endereço", Answer: "Rua das Flores, 100"},
		{Question: "horário", Answer: "Seg-Sex 8h-19h"},
	}
	require.Equal(t, "Rua das Flores, 100", m.Match("Qual o ENDEREÇO da clínica?", catalog).Answer)
	require.Equal(t, NoMatch, m.Match("quero marcar", catalog))
}

func TestNewMatcher_Validation(t *testing.T) {
	_, err := NewMatcher(MatcherConfig{Algorithm: "levenshtein", Threshold: 0.6})
	require.Error(t, err)

	_, err = NewMatcher(MatcherConfig{Threshold: 1})
	require.Error(t, err)

	_, err = NewMatcher(MatcherConfig{Threshold: -0.1})
	require.Error(t, err)

	m, err := NewMatcher(MatcherConfig{Threshold: 0.8})
	require.NoError(t, err)
	require.Equal(t, AlgorithmRatcliffObershelp, m.Algorithm())
	// 0.857 clears 0.8, the clareamento paraphrase at 0.69 does not
	require.True(t, m.Match("qual valor limpeza", []KnownQuestion{{Question: "qual o valor da limpeza?", Answer: "ok"}}).Matched)
	require.False(t, m.Match("qual o valor da limpeza?", []KnownQuestion{{Question: "qual o valor do clareamento?", Answer: "no"}}).Matched)
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	m := DefaultMatcher()
	catalog := clinicCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := m.Match("qual o horario de atendimento", catalog); got.Answer != "Seg-Sex 8h-19h" {
					t.Errorf("unexpected answer %q", got.Answer)
					return
				}
			}
		}()
	}
	wg.Wait()
}
