// Package events manages the event lifecycle and its detail aggregate.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// ErrEventNotFound is returned when an event ID matches no row.
var ErrEventNotFound = errors.New("event not found")

// Filter narrows event listings. Zero values mean no restriction; Region
// is set by the handler from the caller's scope, never from client input.
type Filter struct {
	Region *models.Region
	From   *time.Time
	To     *time.Time
	Status models.EventStatus
}

// Totals are the financial rollups shown on the event detail view.
type Totals struct {
	MaterialsCost    float64 `json:"materials_cost"`
	PaymentsReceived float64 `json:"payments_received"`
	PaymentsPending  float64 `json:"payments_pending"`
	InvoicedAmount   float64 `json:"invoiced_amount"`
}

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, COALESCE(description,''), region, event_date, end_date, status, manager_id, COALESCE(location,''), created_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Region, &e.EventDate, &e.EndDate,
		&e.Status, &e.ManagerID, &e.Location, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, description, region, event_date, end_date, status, manager_id, location, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, string(e.Region), e.EventDate, e.EndDate,
		string(e.Status), e.ManagerID, e.Location, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event with its manager profile joined in.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT e.id, e.title, COALESCE(e.description,''), e.region, e.event_date, e.end_date, e.status,
			e.manager_id, COALESCE(e.location,''), e.created_by, e.created_at, e.updated_at,
			p.id, p.email, COALESCE(p.full_name,''), p.role, p.region, COALESCE(p.contact_number,''), p.created_at
		FROM events e
		LEFT JOIN profiles p ON p.id = e.manager_id
		WHERE e.id = $1`
	var e models.Event
	var m models.ProfilePublic
	var mID *uuid.UUID
	var mEmail, mName, mContact *string
	var mRole, mRegion *string
	var mCreated *time.Time
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Region, &e.EventDate, &e.EndDate, &e.Status,
		&e.ManagerID, &e.Location, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&mID, &mEmail, &mName, &mRole, &mRegion, &mContact, &mCreated)
	if err != nil {
		return nil, err
	}
	if mID != nil {
		m.ID = *mID
		m.Email = *mEmail
		m.FullName = *mName
		m.Role = models.Role(*mRole)
		m.Region = models.Region(*mRegion)
		m.ContactNumber = *mContact
		m.CreatedAt = *mCreated
		e.Manager = &m
	}
	return &e, nil
}

// List returns events matching the filter, soonest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	var conds []string
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Region != nil {
		add("region = $%d", string(*f.Region))
	}
	if f.From != nil {
		add("event_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("event_date <= $%d", *f.To)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	rows, err := r.pool.Query(ctx, q+" ORDER BY event_date ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update replaces the editable fields of an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, region = $3, event_date = $4,
			end_date = $5, manager_id = $6, location = $7, updated_at = NOW()
		WHERE id = $8 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, string(e.Region), e.EventDate,
		e.EndDate, e.ManagerID, e.Location, e.ID).Scan(&e.UpdatedAt)
}

// UpdateStatus transitions the event lifecycle status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error {
	const q = `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// UpdateSchedule moves the event dates without touching other fields.
func (r *Repository) UpdateSchedule(ctx context.Context, id uuid.UUID, eventDate time.Time, endDate *time.Time) error {
	const q = `UPDATE events SET event_date = $1, end_date = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.pool.Exec(ctx, q, eventDate, endDate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes an event. Materials, payments and invoices cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetTotals computes the financial rollups for one event.
func (r *Repository) GetTotals(ctx context.Context, id uuid.UUID) (*Totals, error) {
	const q = `SELECT
		COALESCE((SELECT SUM(total_cost) FROM materials WHERE event_id = $1), 0),
		COALESCE((SELECT SUM(amount) FROM payments WHERE event_id = $1 AND payment_type = 'received'), 0),
		COALESCE((SELECT SUM(amount) FROM payments WHERE event_id = $1 AND payment_type = 'pending'), 0),
		COALESCE((SELECT SUM(total_amount) FROM invoices WHERE event_id = $1), 0)`
	var t Totals
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&t.MaterialsCost, &t.PaymentsReceived, &t.PaymentsPending, &t.InvoicedAmount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
