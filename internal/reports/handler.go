// Package reports serves the dashboard summary aggregates.
package reports

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/access"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/pkg/response"
)

// Summary is the dashboard rollup. Non-admin callers get figures for their
// own region only.
type Summary struct {
	Region           *models.Region `json:"region,omitempty"`
	TotalEvents      int            `json:"total_events"`
	EventsByStatus   map[string]int `json:"events_by_status"`
	UpcomingEvents   int            `json:"upcoming_events"`
	MaterialsCost    float64        `json:"materials_cost"`
	PaymentsReceived float64        `json:"payments_received"`
	PaymentsPending  float64        `json:"payments_pending"`
	InvoicedAmount   float64        `json:"invoiced_amount"`
	UnpaidInvoices   int            `json:"unpaid_invoices"`
}

// Handler computes report aggregates straight off the pool; the queries
// span every domain table so no single repository owns them.
type Handler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	return &Handler{pool: pool, logger: logger}
}

// Summary handles GET /reports/summary.
func (h *Handler) Summary(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	region := access.RegionFilter(claims.Role, claims.Region)

	s, err := h.compute(c.Request.Context(), region)
	if err != nil {
		h.logger.Error("compute summary failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, s)
}

func (h *Handler) compute(ctx context.Context, region *models.Region) (*Summary, error) {
	s := &Summary{Region: region, EventsByStatus: map[string]int{}}

	cond := ""
	var args []interface{}
	if region != nil {
		cond = " WHERE region = $1"
		args = append(args, string(*region))
	}

	rows, err := h.pool.Query(ctx, `SELECT status, COUNT(*) FROM events`+cond+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.EventsByStatus[status] = n
		s.TotalEvents += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	upcomingCond := " WHERE event_date > NOW() AND status IN ('planned', 'in_progress')"
	if region != nil {
		upcomingCond += " AND region = $1"
	}
	if err := h.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+upcomingCond, args...).
		Scan(&s.UpcomingEvents); err != nil {
		return nil, err
	}

	// Child tables are scoped through their parent event.
	eventScope := ""
	if region != nil {
		eventScope = " AND e.region = $1"
	}
	const moneyQ = `SELECT
		COALESCE(SUM(m.total_cost), 0)
		FROM materials m JOIN events e ON e.id = m.event_id WHERE TRUE`
	if err := h.pool.QueryRow(ctx, moneyQ+eventScope, args...).Scan(&s.MaterialsCost); err != nil {
		return nil, err
	}

	const paymentsQ = `SELECT
		COALESCE(SUM(p.amount) FILTER (WHERE p.payment_type = 'received'), 0),
		COALESCE(SUM(p.amount) FILTER (WHERE p.payment_type = 'pending'), 0)
		FROM payments p JOIN events e ON e.id = p.event_id WHERE TRUE`
	if err := h.pool.QueryRow(ctx, paymentsQ+eventScope, args...).
		Scan(&s.PaymentsReceived, &s.PaymentsPending); err != nil {
		return nil, err
	}

	const invoicesQ = `SELECT
		COALESCE(SUM(i.total_amount), 0),
		COUNT(*) FILTER (WHERE i.status IN ('sent', 'overdue'))
		FROM invoices i JOIN events e ON e.id = i.event_id WHERE TRUE`
	if err := h.pool.QueryRow(ctx, invoicesQ+eventScope, args...).
		Scan(&s.InvoicedAmount, &s.UnpaidInvoices); err != nil {
		return nil, err
	}

	return s, nil
}
