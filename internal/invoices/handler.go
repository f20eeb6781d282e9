package invoices

import (
	"context"
	"errors"
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
	"github.com/gulfevents/backoffice/pkg/storage"
)

// Store is the persistence surface the handler needs. Satisfied by
// *Repository; faked in tests.
type Store interface {
	NextNumber(ctx context.Context, issueDate time.Time) (string, error)
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, region *models.Region) ([]models.Invoice, error)
	InvoicesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	MaterialsCost(ctx context.Context, eventID uuid.UUID) (float64, error)
}

// EventSource resolves parent events for region scoping and PDF content.
type EventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Archive stores rendered PDFs and serves download links. Satisfied by
// *storage.S3; nil when S3 is not configured.
type Archive interface {
	UploadInvoicePDF(ctx context.Context, key string, pdf []byte) error
	InvoiceDownloadURL(ctx context.Context, key string) (string, error)
	HasInvoice(ctx context.Context, key string) bool
}

// CreateRequest is the body for POST /events/:id/invoices. Amount is the
// pre-tax subtotal; VAT is applied by region on the document. When amount
// is omitted the invoice is billed at the event's material cost.
type CreateRequest struct {
	ClientName    string  `json:"client_name" binding:"required"`
	ClientContact string  `json:"client_contact"`
	Amount        float64 `json:"amount" binding:"omitempty,gt=0"`
	DueDate       string  `json:"due_date" binding:"required"`
	Notes         string  `json:"notes"`
}

// StatusRequest is the body for PATCH /invoices/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles invoice HTTP endpoints.
type Handler struct {
	store    Store
	events   EventSource
	archive  Archive
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates an invoice handler. archive may be nil.
func NewHandler(store Store, events EventSource, archive Archive, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{store: store, events: events, archive: archive, recorder: recorder, logger: logger}
}

func (h *Handler) scopedEvent(c *gin.Context, eventID uuid.UUID) *models.Event {
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

// scopedInvoice resolves an invoice and its parent event with region scope.
func (h *Handler) scopedInvoice(c *gin.Context) (*models.Invoice, *models.Event) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return nil, nil
	}
	inv, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "invoice not found")
			return nil, nil
		}
		h.logger.Error("get invoice failed", zap.Error(err))
		response.MutationFailed(c, err)
		return nil, nil
	}
	event := h.scopedEvent(c, inv.EventID)
	if event == nil {
		return nil, nil
	}
	return inv, event
}

// ListByEvent handles GET /events/:id/invoices.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if h.scopedEvent(c, eventID) == nil {
		return
	}
	list, err := h.store.InvoicesByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list invoices failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events/:id/invoices (admin and manager).
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event := h.scopedEvent(c, eventID)
	if event == nil {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		response.BadRequest(c, "invalid due_date")
		return
	}
	ctx := c.Request.Context()
	amount := req.Amount
	if amount == 0 {
		amount, err = h.store.MaterialsCost(ctx, eventID)
		if err != nil {
			h.logger.Error("sum material cost failed", zap.Error(err))
			response.MutationFailed(c, err)
			return
		}
		if amount <= 0 {
			response.BadRequest(c, "amount is required when the event has no materials")
			return
		}
	}
	issueDate := time.Now().UTC()
	var inv *models.Invoice
	for attempt := 0; ; attempt++ {
		number, err := h.store.NextNumber(ctx, issueDate)
		if err != nil {
			h.logger.Error("allocate invoice number failed", zap.Error(err))
			response.MutationFailed(c, err)
			return
		}
		inv = &models.Invoice{
			InvoiceNumber: number,
			EventID:       eventID,
			ClientName:    req.ClientName,
			ClientContact: req.ClientContact,
			IssueDate:     issueDate,
			DueDate:       dueDate,
			TotalAmount:   amount,
			Status:        models.InvoiceDraft,
			Notes:         req.Notes,
		}
		err = h.store.Create(ctx, inv)
		if err == nil {
			break
		}
		if isUniqueViolation(err) && attempt < 2 {
			continue
		}
		h.logger.Error("create invoice failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.Created(c, inv)
}

// List handles GET /invoices. Non-privileged callers only see invoices
// whose parent event is in their region.
func (h *Handler) List(c *gin.Context) {
	var region *models.Region
	if claims := auth.ClaimsFrom(c); claims != nil {
		region = access.RegionFilter(claims.Role, claims.Region)
	}
	list, err := h.store.List(c.Request.Context(), region)
	if err != nil {
		h.logger.Error("list invoices failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateStatus handles PATCH /invoices/:id/status (admin and manager).
func (h *Handler) UpdateStatus(c *gin.Context) {
	inv, _ := h.scopedInvoice(c)
	if inv == nil {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.InvoiceStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	if err := h.store.UpdateStatus(c.Request.Context(), inv.ID, status); err != nil {
		h.logger.Error("update invoice status failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	inv.Status = status
	response.OK(c, inv)
}

// PDF handles GET /invoices/:id/pdf. The document is rendered on demand
// and archived to S3 when an archive is configured.
func (h *Handler) PDF(c *gin.Context) {
	inv, event := h.scopedInvoice(c)
	if inv == nil {
		return
	}
	pdf, err := RenderPDF(inv, event)
	if err != nil {
		h.logger.Error("render invoice pdf failed",
			zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		response.Internal(c, "failed to render invoice")
		return
	}
	if h.archive != nil {
		key := storage.InvoiceKey(event.ID.String(), inv.InvoiceNumber)
		if err := h.archive.UploadInvoicePDF(c.Request.Context(), key, pdf); err != nil {
			// Archiving is best effort; the caller still gets the document.
			h.logger.Warn("archive invoice pdf failed",
				zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		}
	}
	c.Header("Content-Disposition", `attachment; filename="`+inv.InvoiceNumber+`.pdf"`)
	c.Data(200, "application/pdf", pdf)
}

// DownloadURL handles GET /invoices/:id/download-url. Returns a pre-signed
// link to the archived copy, rendering and archiving it first if needed.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.archive == nil {
		response.NotFound(c, "invoice archive is not configured")
		return
	}
	inv, event := h.scopedInvoice(c)
	if inv == nil {
		return
	}
	ctx := c.Request.Context()
	key := storage.InvoiceKey(event.ID.String(), inv.InvoiceNumber)
	if !h.archive.HasInvoice(ctx, key) {
		pdf, err := RenderPDF(inv, event)
		if err != nil {
			h.logger.Error("render invoice pdf failed",
				zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
			response.Internal(c, "failed to render invoice")
			return
		}
		if err := h.archive.UploadInvoicePDF(ctx, key, pdf); err != nil {
			h.logger.Error("archive invoice pdf failed",
				zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
			response.Internal(c, "failed to archive invoice")
			return
		}
	}
	url, err := h.archive.InvoiceDownloadURL(ctx, key)
	if err != nil {
		h.logger.Error("presign invoice url failed",
			zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		response.Internal(c, "failed to generate download link")
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Delete handles DELETE /invoices/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	inv, _ := h.scopedInvoice(c)
	if inv == nil {
		return
	}
	if err := h.store.Delete(c.Request.Context(), inv.ID); err != nil {
		h.logger.Error("delete invoice failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.NoContent(c)
}
