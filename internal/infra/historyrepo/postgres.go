package historyrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository persists leads and chat history in Postgres.
type PostgresRepository struct {
	db dbtx
}

// NewPostgresRepository creates a new repository over a pgx pool.
func NewPostgresRepository(db dbtx) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one exchange.
func (r *PostgresRepository) Append(ctx context.Context, ex conversation.Exchange) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_history (id, phone, clinic_id, message, response, route, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ex.ID, ex.Phone, ex.ClinicID, ex.Message, ex.Response, string(ex.Route), ex.CreatedAt)
	return err
}

// FindByPhone fetches a lead by normalized phone.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (conversation.Lead, bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT phone, clinic_id, name, service, availability, source, created_at, last_contact
		FROM leads
		WHERE phone = $1
		LIMIT 1
	`, phone)
	if err != nil {
		return conversation.Lead{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return conversation.Lead{}, false, rows.Err()
	}
	var lead conversation.Lead
	if err := rows.Scan(
		&lead.Phone,
		&lead.ClinicID,
		&lead.Name,
		&lead.Service,
		&lead.Availability,
		&lead.Source,
		&lead.CreatedAt,
		&lead.LastContact,
	); err != nil {
		return conversation.Lead{}, false, err
	}
	return lead, true, rows.Err()
}

// Upsert inserts or refreshes a lead. created_at and a non-empty source are
// kept from the first insert.
func (r *PostgresRepository) Upsert(ctx context.Context, lead conversation.Lead) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO leads (phone, clinic_id, name, service, availability, source, created_at, last_contact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (phone) DO UPDATE SET
			clinic_id = EXCLUDED.clinic_id,
			name = EXCLUDED.name,
			service = EXCLUDED.service,
			availability = EXCLUDED.availability,
			source = COALESCE(NULLIF(leads.source, ''), EXCLUDED.source),
			last_contact = EXCLUDED.last_contact
	`, lead.Phone, lead.ClinicID, lead.Name, lead.Service, lead.Availability, lead.Source, lead.CreatedAt, lead.LastContact)
	return err
}

var (
	_ conversation.HistoryRepository = (*PostgresRepository)(nil)
	_ conversation.LeadRepository    = (*PostgresRepository)(nil)
)
