package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/access"
	"github.com/gulfevents/backoffice/internal/audit"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/pkg/response"
)

// Store is the persistence surface the handler needs. Satisfied by
// *Repository; faked in tests.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f Filter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus) error
	UpdateSchedule(ctx context.Context, id uuid.UUID, eventDate time.Time, endDate *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetTotals(ctx context.Context, id uuid.UUID) (*Totals, error)
}

// LineItems lists the per-event children joined into the detail view.
type LineItems interface {
	MaterialsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Material, error)
	PaymentsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Payment, error)
	InvoicesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invoice, error)
}

// Detail is the full event aggregate served by GET /events/:id.
type Detail struct {
	models.Event
	Materials []models.Material `json:"materials"`
	Payments  []models.Payment  `json:"payments"`
	Invoices  []models.Invoice  `json:"invoices"`
	Totals    Totals            `json:"totals"`
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Region      string  `json:"region"`
	EventDate   string  `json:"event_date" binding:"required"`
	EndDate     *string `json:"end_date"`
	ManagerID   *string `json:"manager_id"`
	Location    string  `json:"location"`
}

// UpdateRequest is the body for PUT /events/:id.
type UpdateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Region      string  `json:"region"`
	EventDate   string  `json:"event_date" binding:"required"`
	EndDate     *string `json:"end_date"`
	ManagerID   *string `json:"manager_id"`
	Location    string  `json:"location"`
}

// StatusRequest is the body for PATCH /events/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ScheduleRequest is the body for PATCH /events/:id/schedule.
type ScheduleRequest struct {
	EventDate string  `json:"event_date" binding:"required"`
	EndDate   *string `json:"end_date"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store    Store
	items    LineItems
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates an event handler. items may be nil until wired.
func NewHandler(store Store, items LineItems, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{store: store, items: items, recorder: recorder, logger: logger}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// scopedEvent fetches the event and enforces region scope for the caller.
// Returns nil after writing the response when access is denied.
func (h *Handler) scopedEvent(c *gin.Context) *models.Event {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return nil
		}
		h.logger.Error("get event failed", zap.String("event_id", id.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return nil
	}
	claims := auth.ClaimsFrom(c)
	if claims != nil && !access.IsPrivileged(claims.Role) && e.Region != claims.Region {
		response.Forbidden(c, "event is outside your region")
		return nil
	}
	return e
}

// List handles GET /events. Non-admin callers only see their own region.
func (h *Handler) List(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	f := Filter{Region: access.RegionFilter(claims.Role, claims.Region)}
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			response.BadRequest(c, "invalid from date")
			return
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			response.BadRequest(c, "invalid to date")
			return
		}
		f.To = &t
	}
	if raw := c.Query("status"); raw != "" {
		status := models.EventStatus(raw)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = status
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id and returns the full aggregate.
func (h *Handler) Get(c *gin.Context) {
	e := h.scopedEvent(c)
	if e == nil {
		return
	}
	d := Detail{Event: *e}
	ctx := c.Request.Context()
	var err error
	if h.items != nil {
		if d.Materials, err = h.items.MaterialsByEvent(ctx, e.ID); err != nil {
			h.logger.Error("load materials failed", zap.Error(err))
			response.MutationFailed(c, err)
			return
		}
		if d.Payments, err = h.items.PaymentsByEvent(ctx, e.ID); err != nil {
			h.logger.Error("load payments failed", zap.Error(err))
			response.MutationFailed(c, err)
			return
		}
		if d.Invoices, err = h.items.InvoicesByEvent(ctx, e.ID); err != nil {
			h.logger.Error("load invoices failed", zap.Error(err))
			response.MutationFailed(c, err)
			return
		}
	}
	totals, err := h.store.GetTotals(ctx, e.ID)
	if err != nil {
		h.logger.Error("load totals failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	d.Totals = *totals
	response.OK(c, d)
}

// Create handles POST /events (admin and manager).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	claims := auth.ClaimsFrom(c)

	region := claims.Region
	if req.Region != "" {
		r, ok := models.ParseRegion(req.Region)
		if !ok {
			response.BadRequest(c, "invalid region")
			return
		}
		// Non-admin callers cannot create events outside their region.
		if !access.IsPrivileged(claims.Role) && r != claims.Region {
			response.Forbidden(c, "cannot create events outside your region")
			return
		}
		region = r
	}

	eventDate, err := parseTime(req.EventDate)
	if err != nil {
		response.BadRequest(c, "invalid event_date")
		return
	}
	var endDate *time.Time
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		endDate = &t
	}
	var managerID *uuid.UUID
	if req.ManagerID != nil {
		id, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			response.BadRequest(c, "invalid manager_id")
			return
		}
		managerID = &id
	}

	e := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Region:      region,
		EventDate:   eventDate,
		EndDate:     endDate,
		Status:      models.EventPlanned,
		ManagerID:   managerID,
		Location:    req.Location,
		CreatedBy:   &claims.UserID,
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditEventCreated,
		fmt.Sprintf("created event %q", e.Title), &e.ID, &e.Region)
	response.Created(c, e)
}

// Update handles PUT /events/:id (admin and manager).
func (h *Handler) Update(c *gin.Context) {
	e := h.scopedEvent(c)
	if e == nil {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	claims := auth.ClaimsFrom(c)

	if req.Region != "" {
		r, ok := models.ParseRegion(req.Region)
		if !ok {
			response.BadRequest(c, "invalid region")
			return
		}
		if !access.IsPrivileged(claims.Role) && r != claims.Region {
			response.Forbidden(c, "cannot move events outside your region")
			return
		}
		e.Region = r
	}
	eventDate, err := parseTime(req.EventDate)
	if err != nil {
		response.BadRequest(c, "invalid event_date")
		return
	}
	e.EventDate = eventDate
	e.EndDate = nil
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		e.EndDate = &t
	}
	e.ManagerID = nil
	if req.ManagerID != nil {
		id, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			response.BadRequest(c, "invalid manager_id")
			return
		}
		e.ManagerID = &id
	}
	e.Title = req.Title
	e.Description = req.Description
	e.Location = req.Location

	if err := h.store.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("update event failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, e)
}

// UpdateStatus handles PATCH /events/:id/status (admin and manager).
func (h *Handler) UpdateStatus(c *gin.Context) {
	e := h.scopedEvent(c)
	if e == nil {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.EventStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	if err := h.store.UpdateStatus(c.Request.Context(), e.ID, status); err != nil {
		h.logger.Error("update event status failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditEventStatusChanged,
		fmt.Sprintf("event %q status %s -> %s", e.Title, e.Status, status), &e.ID, &e.Region)
	e.Status = status
	response.OK(c, e)
}

// UpdateSchedule handles PATCH /events/:id/schedule (admin and manager).
func (h *Handler) UpdateSchedule(c *gin.Context) {
	e := h.scopedEvent(c)
	if e == nil {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventDate, err := parseTime(req.EventDate)
	if err != nil {
		response.BadRequest(c, "invalid event_date")
		return
	}
	var endDate *time.Time
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		endDate = &t
	}
	if err := h.store.UpdateSchedule(c.Request.Context(), e.ID, eventDate, endDate); err != nil {
		h.logger.Error("update event schedule failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	e.EventDate = eventDate
	e.EndDate = endDate
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	e := h.scopedEvent(c)
	if e == nil {
		return
	}
	if err := h.store.Delete(c.Request.Context(), e.ID); err != nil {
		h.logger.Error("delete event failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditEventDeleted,
		fmt.Sprintf("deleted event %q", e.Title), &e.ID, &e.Region)
	response.NoContent(c)
}
