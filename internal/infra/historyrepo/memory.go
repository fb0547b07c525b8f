package historyrepo

import (
	"context"
	"sync"

	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
)

// MemoryRepository keeps leads and chat history in process memory for
// tests/dev.
type MemoryRepository struct {
	mu        sync.RWMutex
	leads     map[string]conversation.Lead
	exchanges []conversation.Exchange
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{leads: make(map[string]conversation.Lead)}
}

// Append implements conversation.HistoryRepository.
func (r *MemoryRepository) Append(_ context.Context, ex conversation.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, ex)
	return nil
}

// Exchanges returns the recorded exchanges of phone, oldest first.
func (r *MemoryRepository) Exchanges(phone string) []conversation.Exchange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []conversation.Exchange
	for _, ex := range r.exchanges {
		if ex.Phone == phone {
			out = append(out, ex)
		}
	}
	return out
}

// FindByPhone implements conversation.LeadRepository.
func (r *MemoryRepository) FindByPhone(_ context.Context, phone string) (conversation.Lead, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.leads[phone]
	return lead, ok, nil
}

// Upsert implements conversation.LeadRepository. The first CreatedAt and
// Source win.
func (r *MemoryRepository) Upsert(_ context.Context, lead conversation.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.leads[lead.Phone]; ok {
		lead.CreatedAt = existing.CreatedAt
		if existing.Source != "" {
			lead.Source = existing.Source
		}
	}
	r.leads[lead.Phone] = lead
	return nil
}

var (
	_ conversation.HistoryRepository = (*MemoryRepository)(nil)
	_ conversation.LeadRepository    = (*MemoryRepository)(nil)
)
