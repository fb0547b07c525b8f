package faq

import "context"

// Store counts catalog hits per clinic. canonical groups spelling variants of
// one catalog question; display is what trending lists show.
type Store interface {
	IncrementQuery(ctx context.Context, clinicID, canonical, display string) error
	TopQueries(ctx context.Context, clinicID string, limit int) ([]TrendingQuery, error)
}

// CatalogSource supplies a read snapshot of a clinic's catalog. Entries are
// returned in catalog order and must not be mutated by the caller.
type CatalogSource interface {
	Snapshot(ctx context.Context, clinicID string) ([]KnownQuestion, error)
}
