// Package audit appends immutable records of guarded mutations and serves
// the admin activity log.
package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// Repository handles the append-only audit_logs table. There is no update
// or delete path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one audit entry.
func (r *Repository) Insert(ctx context.Context, e models.AuditEntry) error {
	const q = `INSERT INTO audit_logs (action, description, user_id, user_email, role, region, entity_id)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7)`
	_, err := r.pool.Exec(ctx, q, e.Action, e.Description, e.UserID, e.UserEmail,
		string(e.Role), string(e.Region), e.EntityID)
	return err
}

// ListRecent returns the newest entries first, up to limit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, action, description, user_id,
			COALESCE(user_email,''), COALESCE(role,''), COALESCE(region,''), entity_id, created_at
		 FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Description, &e.UserID,
			&e.UserEmail, &e.Role, &e.Region, &e.EntityID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
