package faqstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

type hit struct {
	display string
	count   int64
}

// MemoryStore counts catalog hits per clinic in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	clinics map[string]map[string]*hit
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clinics: make(map[string]map[string]*hit)}
}

// IncrementQuery implements faq.Store. The first display seen for a key wins.
func (s *MemoryStore) IncrementQuery(_ context.Context, clinicID, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if display == "" {
		display = canonical
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	hits, ok := s.clinics[clinicID]
	if !ok {
		hits = make(map[string]*hit)
		s.clinics[clinicID] = hits
	}
	h, ok := hits[canonical]
	if !ok {
		h = &hit{display: display}
		hits[canonical] = h
	}
	h.count++
	return nil
}

// TopQueries implements faq.Store. Ties are ordered by display text; a
// non-positive limit returns everything.
func (s *MemoryStore) TopQueries(_ context.Context, clinicID string, limit int) ([]faq.TrendingQuery, error) {
	s.mu.RLock()
	hits := s.clinics[clinicID]
	items := make([]faq.TrendingQuery, 0, len(hits))
	for _, h := range hits {
		items = append(items, faq.TrendingQuery{Query: h.display, Count: h.count})
	}
	s.mu.RUnlock()

	slices.SortFunc(items, func(a, b faq.TrendingQuery) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ faq.Store = (*MemoryStore)(nil)
