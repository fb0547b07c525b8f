package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/clinic-assistant/internal/domain/session"
	"github.com/yanqian/clinic-assistant/pkg/util"
)

type memoryEntry struct {
	session   session.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// lazily on read and in bulk by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     util.Clock
}

// NewMemoryStore constructs the store; a non-positive ttl uses session.DefaultTTL.
func NewMemoryStore(ttl time.Duration, clock util.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     clock.OrNow(),
	}
}

// Get implements session.Store.
func (s *MemoryStore) Get(_ context.Context, key string) (session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return session.Session{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return session.Session{}, false, nil
	}
	return entry.session, true, nil
}

// Save implements session.Store and restarts the inactivity window.
func (s *MemoryStore) Save(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.Key] = memoryEntry{session: sess, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete implements session.Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep evicts every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len reports how many sessions are held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ session.Store = (*MemoryStore)(nil)
