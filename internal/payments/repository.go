// Package payments tracks client payments received or expected per event.
package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// ErrPaymentNotFound is returned when a payment ID matches no row.
var ErrPaymentNotFound = errors.New("payment not found")

// Repository handles payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, event_id, amount, payment_type, payment_date, COALESCE(payment_method,''), client_name, status, COALESCE(notes,''), created_at, updated_at`

// Create inserts a payment record.
func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (event_id, amount, payment_type, payment_date, payment_method, client_name, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.EventID, p.Amount, string(p.PaymentType), p.PaymentDate,
		p.PaymentMethod, p.ClientName, string(p.Status), p.Notes).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns one payment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var p models.Payment
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.EventID, &p.Amount, &p.PaymentType,
		&p.PaymentDate, &p.PaymentMethod, &p.ClientName, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentsByEvent returns the payments for an event, newest first.
func (r *Repository) PaymentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE event_id = $1 ORDER BY payment_date DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.EventID, &p.Amount, &p.PaymentType, &p.PaymentDate,
			&p.PaymentMethod, &p.ClientName, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update replaces the editable fields of a payment.
func (r *Repository) Update(ctx context.Context, p *models.Payment) error {
	const q = `UPDATE payments SET amount = $1, payment_type = $2, payment_date = $3,
			payment_method = $4, client_name = $5, notes = $6, updated_at = NOW()
		WHERE id = $7 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, p.Amount, string(p.PaymentType), p.PaymentDate,
		p.PaymentMethod, p.ClientName, p.Notes, p.ID).Scan(&p.UpdatedAt)
}

// UpdateStatus transitions the payment status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// Delete removes a payment record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
