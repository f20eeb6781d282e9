package payments

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

// EventSource resolves parent events for region scoping.
type EventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// CreateRequest is the body for POST /events/:id/payments.
type CreateRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentType   string  `json:"payment_type" binding:"required"`
	PaymentDate   *string `json:"payment_date"`
	PaymentMethod string  `json:"payment_method"`
	ClientName    string  `json:"client_name" binding:"required"`
	Notes         string  `json:"notes"`
}

// UpdateRequest is the body for PUT /payments/:id.
type UpdateRequest = CreateRequest

// StatusRequest is the body for PATCH /payments/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles payment HTTP endpoints.
type Handler struct {
	repo     *Repository
	events   EventSource
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a payment handler.
func NewHandler(repo *Repository, events EventSource, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, events: events, recorder: recorder, logger: logger}
}

func (h *Handler) scopedParent(c *gin.Context, eventID uuid.UUID) *models.Event {
	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "event not found")
			return nil
		}
		h.logger.Error("get parent event failed", zap.Error(err))
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

// ListByEvent handles GET /events/:id/payments.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if h.scopedParent(c, eventID) == nil {
		return
	}
	list, err := h.repo.PaymentsByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list payments failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events/:id/payments (admin and manager).
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event := h.scopedParent(c, eventID)
	if event == nil {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	pType := models.PaymentType(req.PaymentType)
	if !pType.Valid() {
		response.BadRequest(c, "invalid payment_type")
		return
	}
	paymentDate := time.Now().UTC()
	if req.PaymentDate != nil {
		t, err := time.Parse(time.RFC3339, *req.PaymentDate)
		if err != nil {
			response.BadRequest(c, "invalid payment_date")
			return
		}
		paymentDate = t
	}
	status := models.PaymentStatusPending
	if pType == models.PaymentReceived {
		status = models.PaymentStatusCompleted
	}
	p := &models.Payment{
		EventID:       eventID,
		Amount:        req.Amount,
		PaymentType:   pType,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		ClientName:    req.ClientName,
		Status:        status,
		Notes:         req.Notes,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PUT /payments/:id (admin and manager).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "payment not found")
			return
		}
		h.logger.Error("get payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if h.scopedParent(c, p.EventID) == nil {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	pType := models.PaymentType(req.PaymentType)
	if !pType.Valid() {
		response.BadRequest(c, "invalid payment_type")
		return
	}
	p.Amount = req.Amount
	p.PaymentType = pType
	p.PaymentMethod = req.PaymentMethod
	p.ClientName = req.ClientName
	p.Notes = req.Notes
	if req.PaymentDate != nil {
		t, err := time.Parse(time.RFC3339, *req.PaymentDate)
		if err != nil {
			response.BadRequest(c, "invalid payment_date")
			return
		}
		p.PaymentDate = t
	}
	if err := h.repo.Update(c.Request.Context(), p); err != nil {
		h.logger.Error("update payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, p)
}

// UpdateStatus handles PATCH /payments/:id/status (admin and manager).
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "payment not found")
			return
		}
		h.logger.Error("get payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	event := h.scopedParent(c, p.EventID)
	if event == nil {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.PaymentStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	if err := h.repo.UpdateStatus(c.Request.Context(), id, status); err != nil {
		h.logger.Error("update payment status failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditPaymentStatusChanged,
		fmt.Sprintf("payment from %q on event %q: %s -> %s", p.ClientName, event.Title, p.Status, status),
		&p.ID, &event.Region)
	p.Status = status
	response.OK(c, p)
}

// Delete handles DELETE /payments/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "payment not found")
			return
		}
		h.logger.Error("get payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if h.scopedParent(c, p.EventID) == nil {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete payment failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.NoContent(c)
}
