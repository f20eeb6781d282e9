// Package emaillogs records outbound email delivery attempts.
package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery statuses of an outbound email.
const (
	StatusQueued = "queued"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// EmailLog is one delivery attempt record.
type EmailLog struct {
	ID        uuid.UUID  `json:"id"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	Recipient string     `json:"recipient"`
	EmailType string     `json:"email_type"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository handles email log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one delivery attempt.
func (r *Repository) Record(ctx context.Context, profileID *uuid.UUID, recipient, emailType, status, errMsg string) error {
	const q = `INSERT INTO email_logs (profile_id, recipient, email_type, status, error)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))`
	_, err := r.pool.Exec(ctx, q, profileID, recipient, emailType, status, errMsg)
	return err
}

// ListRecent returns the newest delivery attempts first, up to limit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]EmailLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, profile_id, recipient, email_type, status, COALESCE(error,''), created_at
		 FROM email_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []EmailLog
	for rows.Next() {
		var l EmailLog
		if err := rows.Scan(&l.ID, &l.ProfileID, &l.Recipient, &l.EmailType,
			&l.Status, &l.Error, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
