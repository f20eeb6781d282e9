package materials

import (
	"context"
	"errors"
	"fmt"

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

// CreateRequest is the body for POST /events/:id/materials.
type CreateRequest struct {
	MaterialName string  `json:"material_name" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
	Unit         string  `json:"unit"`
	UnitCost     float64 `json:"unit_cost" binding:"gte=0"`
	Supplier     string  `json:"supplier"`
	Notes        string  `json:"notes"`
}

// UpdateRequest is the body for PUT /materials/:id.
type UpdateRequest = CreateRequest

// Handler handles material HTTP endpoints.
type Handler struct {
	repo     *Repository
	events   EventSource
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a material handler.
func NewHandler(repo *Repository, events EventSource, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, events: events, recorder: recorder, logger: logger}
}

// scopedParent resolves the parent event and enforces region scope.
// Writes the response and returns nil when access is denied.
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

// ListByEvent handles GET /events/:id/materials.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if h.scopedParent(c, eventID) == nil {
		return
	}
	list, err := h.repo.MaterialsByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list materials failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events/:id/materials (admin and manager).
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
	m := &models.Material{
		EventID:      eventID,
		MaterialName: req.MaterialName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		UnitCost:     req.UnitCost,
		Supplier:     req.Supplier,
		Notes:        req.Notes,
	}
	if m.Unit == "" {
		m.Unit = "unit"
	}
	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create material failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditMaterialAdded,
		fmt.Sprintf("added %q to event %q", m.MaterialName, event.Title), &m.ID, &event.Region)
	response.Created(c, m)
}

// Update handles PUT /materials/:id (admin and manager).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "material not found")
			return
		}
		h.logger.Error("get material failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if h.scopedParent(c, m.EventID) == nil {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m.MaterialName = req.MaterialName
	m.Quantity = req.Quantity
	m.UnitCost = req.UnitCost
	m.Supplier = req.Supplier
	m.Notes = req.Notes
	if req.Unit != "" {
		m.Unit = req.Unit
	}
	if err := h.repo.Update(c.Request.Context(), m); err != nil {
		h.logger.Error("update material failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, m)
}

// Delete handles DELETE /materials/:id (admin and manager).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "material not found")
			return
		}
		h.logger.Error("get material failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if h.scopedParent(c, m.EventID) == nil {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete material failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.NoContent(c)
}
