// Package invoices manages client invoices, their numbering and the
// generated PDF documents.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfevents/backoffice/internal/models"
)

// ErrInvoiceNotFound is returned when an invoice ID matches no row.
var ErrInvoiceNotFound = errors.New("invoice not found")

// Repository handles invoice persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invoice repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, invoice_number, event_id, client_name, client_contact, issue_date, due_date, total_amount, status, COALESCE(notes,''), created_at, updated_at`

// NextNumber allocates the next invoice number for the issue month, in the
// form INV-YYYYMM-NNNN. The sequence restarts every month and is derived
// from the highest number issued, not the row count, so deleting an
// invoice never re-allocates a number that is still in use. Zero padding
// keeps MAX correct lexicographically within a month.
func (r *Repository) NextNumber(ctx context.Context, issueDate time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", issueDate.Format("200601"))
	const q = `SELECT COALESCE(MAX(invoice_number), '') FROM invoices WHERE invoice_number LIKE $1 || '%'`
	var last string
	if err := r.pool.QueryRow(ctx, q, prefix).Scan(&last); err != nil {
		return "", err
	}
	return numberAfter(prefix, last), nil
}

// numberAfter returns the invoice number following last within the month
// prefix, or the first number of the month when last is empty.
func numberAfter(prefix, last string) string {
	n := 0
	if s := strings.TrimPrefix(last, prefix); s != last {
		if v, err := strconv.Atoi(s); err == nil {
			n = v
		}
	}
	return fmt.Sprintf("%s%04d", prefix, n+1)
}

// isUniqueViolation reports whether err is the unique constraint rejecting
// a duplicate invoice number. Two concurrent creates can allocate the same
// number; the loser retries with a fresh allocation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts an invoice. The number must already be allocated.
func (r *Repository) Create(ctx context.Context, inv *models.Invoice) error {
	const q = `INSERT INTO invoices (invoice_number, event_id, client_name, client_contact, issue_date, due_date, total_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, inv.InvoiceNumber, inv.EventID, inv.ClientName, inv.ClientContact,
		inv.IssueDate, inv.DueDate, inv.TotalAmount, string(inv.Status), inv.Notes).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

// GetByID returns one invoice.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv models.Invoice
	err := r.pool.QueryRow(ctx, q, id).Scan(&inv.ID, &inv.InvoiceNumber, &inv.EventID,
		&inv.ClientName, &inv.ClientContact, &inv.IssueDate, &inv.DueDate,
		&inv.TotalAmount, &inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns all invoices, newest first, optionally restricted to
// invoices whose parent event is in region.
func (r *Repository) List(ctx context.Context, region *models.Region) ([]models.Invoice, error) {
	q := `SELECT i.id, i.invoice_number, i.event_id, i.client_name, i.client_contact, i.issue_date, i.due_date, i.total_amount, i.status, COALESCE(i.notes,''), i.created_at, i.updated_at
		FROM invoices i JOIN events e ON e.id = i.event_id`
	var args []any
	if region != nil {
		q += ` WHERE e.region = $1`
		args = append(args, string(*region))
	}
	q += ` ORDER BY i.issue_date DESC, i.invoice_number DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.EventID, &inv.ClientName,
			&inv.ClientContact, &inv.IssueDate, &inv.DueDate, &inv.TotalAmount,
			&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// MaterialsCost sums the material line totals for an event. It backs the
// default invoice amount when the client omits one.
func (r *Repository) MaterialsCost(ctx context.Context, eventID uuid.UUID) (float64, error) {
	const q = `SELECT COALESCE(SUM(total_cost), 0) FROM materials WHERE event_id = $1`
	var total float64
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&total)
	return total, err
}

// InvoicesByEvent returns the invoices for an event, newest first.
func (r *Repository) InvoicesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE event_id = $1 ORDER BY issue_date DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.EventID, &inv.ClientName,
			&inv.ClientContact, &inv.IssueDate, &inv.DueDate, &inv.TotalAmount,
			&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// UpdateStatus transitions the invoice status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// Delete removes an invoice.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
