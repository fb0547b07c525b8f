package catalog

import (
	"context"
	"sync"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

// MemorySource serves catalogs held in process memory. Replacements swap the
// whole slice so snapshots already handed out stay consistent.
type MemorySource struct {
	mu       sync.RWMutex
	catalogs map[string][]faq.KnownQuestion
}

// NewMemorySource seeds the source with one clinic's entries.
func NewMemorySource(clinicID string, entries []faq.KnownQuestion) *MemorySource {
	s := &MemorySource{catalogs: make(map[string][]faq.KnownQuestion)}
	if len(entries) > 0 {
		s.Replace(clinicID, entries)
	}
	return s
}

// Snapshot implements faq.CatalogSource. Unknown clinics have an empty catalog.
func (s *MemorySource) Snapshot(_ context.Context, clinicID string) ([]faq.KnownQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogs[clinicID], nil
}

// Replace swaps the catalog of one clinic.
func (s *MemorySource) Replace(clinicID string, entries []faq.KnownQuestion) {
	copied := append([]faq.KnownQuestion(nil), entries...)
	s.mu.Lock()
	s.catalogs[clinicID] = copied
	s.mu.Unlock()
}

// ReplaceAll swaps every catalog at once.
func (s *MemorySource) ReplaceAll(catalogs map[string][]faq.KnownQuestion) {
	next := make(map[string][]faq.KnownQuestion, len(catalogs))
	for id, entries := range catalogs {
		next[id] = append([]faq.KnownQuestion(nil), entries...)
	}
	s.mu.Lock()
	s.catalogs = next
	s.mu.Unlock()
}

var _ faq.CatalogSource = (*MemorySource)(nil)
