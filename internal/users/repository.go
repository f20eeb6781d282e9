// Package users administers profiles: listing, role and region changes,
// and inviting new members.
package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// ErrUserNotFound is returned when a profile ID matches no row.
var ErrUserNotFound = errors.New("user not found")

// Repository handles profile administration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const publicColumns = `id, email, COALESCE(full_name,''), role, region, COALESCE(contact_number,''), created_at`

// List returns all profiles, optionally restricted to one region.
func (r *Repository) List(ctx context.Context, region *models.Region) ([]models.ProfilePublic, error) {
	q := `SELECT ` + publicColumns + ` FROM profiles`
	var args []interface{}
	if region != nil {
		q += ` WHERE region = $1`
		args = append(args, string(*region))
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ProfilePublic
	for rows.Next() {
		var p models.ProfilePublic
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.Region,
			&p.ContactNumber, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetByID returns one profile in its public shape.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProfilePublic, error) {
	const q = `SELECT ` + publicColumns + ` FROM profiles WHERE id = $1`
	var p models.ProfilePublic
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Role,
		&p.Region, &p.ContactNumber, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts an invited profile with a hashed temporary password.
func (r *Repository) Create(ctx context.Context, p *models.Profile) error {
	const q = `INSERT INTO profiles (email, password_hash, full_name, role, region, contact_number)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Email, p.Password, p.FullName,
		string(p.Role), string(p.Region), p.ContactNumber).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdateRole changes a profile's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role = $1, updated_at = NOW() WHERE id = $2`, string(role), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRegion changes a profile's region.
func (r *Repository) UpdateRegion(ctx context.Context, id uuid.UUID, region models.Region) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET region = $1, updated_at = NOW() WHERE id = $2`, string(region), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EmailExists reports whether a profile already uses the email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}
