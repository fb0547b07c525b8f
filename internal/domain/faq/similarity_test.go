package faq

import "testing"

func TestRatcliffObershelp(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"oi", "oi", 1},
		{"", "", 1},
		{"abcd", "abxy", 0.5},
		{"oi tudo bem", "oi", 4.0 / 13.0},
		{"implante", "implantes", 16.0 / 17.0},
		{"qual o horário de atendimento?", "qual o horario de atendimento", 56.0 / 59.0},
	}
	for _, tc := range cases {
		got := RatcliffObershelp(tc.a, tc.b)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("ratio(%q, %q): expected %v got %v", tc.a, tc.b, tc.want, got)
		}
	}
}

func TestContainment(t *testing.T) {
	if Containment("", "anything") != 0 {
		t.Fatalf("empty question must not match")
	}
	if Containment("preço", "qual o preço?") != 1 {
		t.Fatalf("expected containment hit")
	}
	if Containment("qual o preço?", "preço") != 0 {
		t.Fatalf("message inside question is not a hit")
	}
}

func TestScorerFor(t *testing.T) {
	for _, alg := range []Algorithm{"", AlgorithmRatcliffObershelp, AlgorithmSubstring} {
		if _, err := ScorerFor(alg); err != nil {
			t.Fatalf("algorithm %q: unexpected error %v", alg, err)
		}
	}
	if _, err := ScorerFor("jaccard"); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
}
