package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/audit"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/pkg/queue"
	"github.com/gulfevents/backoffice/pkg/response"
	"github.com/gulfevents/backoffice/pkg/utils"
)

// RoleRequest is the body for PATCH /users/:id/role.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// RegionRequest is the body for PATCH /users/:id/region.
type RegionRequest struct {
	Region string `json:"region" binding:"required"`
}

// InviteRequest is the body for POST /users/invite.
type InviteRequest struct {
	Email         string `json:"email" binding:"required,email"`
	FullName      string `json:"full_name" binding:"required"`
	Role          string `json:"role"`
	Region        string `json:"region"`
	ContactNumber string `json:"contact_number"`
}

// Handler handles user administration endpoints. All routes are admin only.
type Handler struct {
	repo     *Repository
	queue    *queue.Queue
	recorder *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a users handler. queue may be nil when Redis is down;
// invitations are still created, only the email is skipped.
func NewHandler(repo *Repository, q *queue.Queue, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, queue: q, recorder: recorder, logger: logger}
}

// List handles GET /users. An optional ?region= filter narrows the result.
func (h *Handler) List(c *gin.Context) {
	var region *models.Region
	if raw := c.Query("region"); raw != "" {
		r, ok := models.ParseRegion(raw)
		if !ok {
			response.BadRequest(c, "invalid region")
			return
		}
		region = &r
	}
	list, err := h.repo.List(c.Request.Context(), region)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateRole handles PATCH /users/:id/role.
func (h *Handler) UpdateRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "invalid role")
		return
	}
	claims := auth.ClaimsFrom(c)
	// An admin cannot demote themselves; the last admin lockout is worse
	// than making them ask a peer.
	if claims != nil && claims.UserID == id && role != models.RoleAdmin {
		response.BadRequest(c, "cannot change your own role")
		return
	}
	target, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if err := h.repo.UpdateRole(c.Request.Context(), id, role); err != nil {
		h.logger.Error("update role failed", zap.String("user_id", id.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditRoleChanged,
		fmt.Sprintf("changed role of %s: %s -> %s", target.Email, target.Role, role), &id, nil)
	target.Role = role
	response.OK(c, target)
}

// UpdateRegion handles PATCH /users/:id/region.
func (h *Handler) UpdateRegion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	region, ok := models.ParseRegion(req.Region)
	if !ok {
		response.BadRequest(c, "invalid region")
		return
	}
	target, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if err := h.repo.UpdateRegion(c.Request.Context(), id, region); err != nil {
		h.logger.Error("update region failed", zap.String("user_id", id.String()), zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	h.recorder.Record(auth.ActorFrom(c), models.AuditRegionChanged,
		fmt.Sprintf("moved %s: %s -> %s", target.Email, target.Region, region), &id, &region)
	target.Region = region
	response.OK(c, target)
}

// Invite handles POST /users/invite. A profile is created with a temporary
// password and the credentials email is queued for the worker.
func (h *Handler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	role := models.RoleDefault
	if req.Role != "" {
		r, ok := models.ParseRole(req.Role)
		if !ok {
			response.BadRequest(c, "invalid role")
			return
		}
		role = r
	}
	region := models.RegionDefault
	if req.Region != "" {
		r, ok := models.ParseRegion(req.Region)
		if !ok {
			response.BadRequest(c, "invalid region")
			return
		}
		region = r
	}

	ctx := c.Request.Context()
	exists, err := h.repo.EmailExists(ctx, email)
	if err != nil {
		h.logger.Error("check email failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}
	if exists {
		response.Conflict(c, "a user with this email already exists")
		return
	}

	tempPassword, err := utils.RandomPassword(12)
	if err != nil {
		h.logger.Error("generate temp password failed", zap.Error(err))
		response.Internal(c, "failed to create invitation")
		return
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		h.logger.Error("hash temp password failed", zap.Error(err))
		response.Internal(c, "failed to create invitation")
		return
	}

	p := &models.Profile{
		Email:         email,
		Password:      hash,
		FullName:      req.FullName,
		Role:          role,
		Region:        region,
		ContactNumber: req.ContactNumber,
	}
	if err := h.repo.Create(ctx, p); err != nil {
		h.logger.Error("create invited profile failed", zap.Error(err))
		response.MutationFailed(c, err)
		return
	}

	actor := auth.ActorFrom(c)
	if h.queue != nil {
		invitedBy := ""
		if actor != nil {
			invitedBy = actor.Email
		}
		err := h.queue.EnqueueInviteEmail(ctx, queue.InviteEmailPayload{
			ProfileID:     p.ID,
			Email:         p.Email,
			FullName:      p.FullName,
			Role:          p.Role,
			Region:        p.Region,
			TempPassword:  tempPassword,
			InvitedByName: invitedBy,
		})
		if err != nil {
			// The profile exists either way; the admin can resend later.
			h.logger.Warn("enqueue invite email failed",
				zap.String("email", p.Email), zap.Error(err))
		}
	}
	h.recorder.Record(actor, models.AuditUserInvited,
		fmt.Sprintf("invited %s as %s (%s)", p.Email, p.Role, p.Region), &p.ID, &region)

	pub := p.ToPublic()
	response.Created(c, pub)
}
