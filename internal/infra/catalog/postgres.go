package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the faq table on every snapshot.
type PostgresSource struct {
	db querier
}

// NewPostgresSource constructs the source over a pgx pool (or anything with Query).
func NewPostgresSource(db querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// Snapshot implements faq.CatalogSource.
func (s *PostgresSource) Snapshot(ctx context.Context, clinicID string) ([]faq.KnownQuestion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT question, answer
		FROM faq
		WHERE clinic_id = $1
		ORDER BY id
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []faq.KnownQuestion
	for rows.Next() {
		var entry faq.KnownQuestion
		if err := rows.Scan(&entry.Question, &entry.Answer); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ faq.CatalogSource = (*PostgresSource)(nil)
