// Package materials tracks per-event material line items and their cost.
package materials

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// ErrMaterialNotFound is returned when a material ID matches no row.
var ErrMaterialNotFound = errors.New("material not found")

// Repository handles material persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a material repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const materialColumns = `id, event_id, material_name, quantity, COALESCE(unit,'unit'), unit_cost, total_cost, COALESCE(supplier,''), COALESCE(notes,''), created_at, updated_at`

// Create inserts a material line item. TotalCost is computed here, never
// taken from the caller.
func (r *Repository) Create(ctx context.Context, m *models.Material) error {
	m.TotalCost = m.Quantity * m.UnitCost
	const q = `INSERT INTO materials (event_id, material_name, quantity, unit, unit_cost, total_cost, supplier, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.EventID, m.MaterialName, m.Quantity, m.Unit,
		m.UnitCost, m.TotalCost, m.Supplier, m.Notes).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns one material line item.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	const q = `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	var m models.Material
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.EventID, &m.MaterialName, &m.Quantity,
		&m.Unit, &m.UnitCost, &m.TotalCost, &m.Supplier, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MaterialsByEvent returns the line items for an event, oldest first.
func (r *Repository) MaterialsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Material, error) {
	const q = `SELECT ` + materialColumns + ` FROM materials WHERE event_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.EventID, &m.MaterialName, &m.Quantity, &m.Unit,
			&m.UnitCost, &m.TotalCost, &m.Supplier, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Update replaces the editable fields and recomputes TotalCost.
func (r *Repository) Update(ctx context.Context, m *models.Material) error {
	m.TotalCost = m.Quantity * m.UnitCost
	const q = `UPDATE materials SET material_name = $1, quantity = $2, unit = $3, unit_cost = $4,
			total_cost = $5, supplier = $6, notes = $7, updated_at = NOW()
		WHERE id = $8 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, m.MaterialName, m.Quantity, m.Unit, m.UnitCost,
		m.TotalCost, m.Supplier, m.Notes, m.ID).Scan(&m.UpdatedAt)
}

// Delete removes a material line item.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMaterialNotFound
	}
	return nil
}
