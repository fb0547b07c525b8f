package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
	"github.com/yanqian/clinic-assistant/pkg/util"
)

// ObjectReader fetches a blob by key from object storage.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ObjectSource serves a catalog document kept in object storage, refetching
// it once the refresh interval has elapsed.
type ObjectSource struct {
	reader        ObjectReader
	key           string
	refresh       time.Duration
	defaultClinic string
	now           util.Clock
	logger        *slog.Logger

	mu        sync.Mutex
	current   *MemorySource
	fetchedAt time.Time
	loaded    bool
}

// NewObjectSource constructs the source. A non-positive refresh fetches once.
func NewObjectSource(reader ObjectReader, key, defaultClinicID string, refresh time.Duration, clock util.Clock, logger *slog.Logger) *ObjectSource {
	return &ObjectSource{
		reader:        reader,
		key:           key,
		refresh:       refresh,
		defaultClinic: defaultClinicID,
		now:           clock.OrNow(),
		logger:        logger.With("component", "catalog.object"),
		current:       NewMemorySource(defaultClinicID, nil),
	}
}

// Snapshot implements faq.CatalogSource. A failed refresh keeps serving the
// last good document; only the very first fetch surfaces errors.
func (s *ObjectSource) Snapshot(ctx context.Context, clinicID string) ([]faq.KnownQuestion, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return s.current.Snapshot(ctx, clinicID)
}

func (s *ObjectSource) ensureFresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && (s.refresh <= 0 || s.now().Sub(s.fetchedAt) < s.refresh) {
		return nil
	}
	catalogs, err := s.fetch(ctx)
	if err != nil {
		if s.loaded {
			s.logger.Warn("catalog refresh failed, serving stale snapshot", "key", s.key, "error", err)
			s.fetchedAt = s.now()
			return nil
		}
		return err
	}
	s.current.ReplaceAll(catalogs)
	s.fetchedAt = s.now()
	s.loaded = true
	return nil
}

func (s *ObjectSource) fetch(ctx context.Context) (map[string][]faq.KnownQuestion, error) {
	body, err := s.reader.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog object %q: %w", s.key, err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read catalog object %q: %w", s.key, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Catalogs(s.defaultClinic), nil
}

var _ faq.CatalogSource = (*ObjectSource)(nil)
