package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/astro-gateway/internal/domain"
)

// SessionEventRepository defines persistence access for the auth journal.
type SessionEventRepository interface {
	Record(ctx context.Context, event *domain.SessionEvent) error
	ListBySession(ctx context.Context, sessionKey string, limit int) ([]domain.SessionEvent, error)
}

type sessionEventRepository struct {
	pool *pgxpool.Pool
}

// NewSessionEventRepository returns a Postgres-backed implementation.
func NewSessionEventRepository(pool *pgxpool.Pool) SessionEventRepository {
	return &sessionEventRepository{pool: pool}
}

func (r *sessionEventRepository) Record(ctx context.Context, event *domain.SessionEvent) error {
	const query = `
        INSERT INTO session_events (session_key, event_type, role, profile_id, logged_in, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		event.SessionKey,
		event.Type,
		string(event.Role),
		event.ProfileID,
		event.LoggedIn,
		event.OccurredAt,
	).Scan(&event.ID)
}

func (r *sessionEventRepository) ListBySession(ctx context.Context, sessionKey string, limit int) ([]domain.SessionEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `
        SELECT id, session_key, event_type, role, profile_id, logged_in, occurred_at
        FROM session_events WHERE session_key=$1
        ORDER BY occurred_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionEvent
	for rows.Next() {
		var (
			e    domain.SessionEvent
			role string
		)
		if err := rows.Scan(
			&e.ID,
			&e.SessionKey,
			&e.Type,
			&role,
			&e.ProfileID,
			&e.LoggedIn,
			&e.OccurredAt,
		); err != nil {
			return nil, err
		}
		e.Role = domain.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}
