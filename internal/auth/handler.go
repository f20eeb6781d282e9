package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/internal/session"
	"github.com/gulfevents/backoffice/pkg/response"
	"github.com/gulfevents/backoffice/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT and hydrated user.
type TokenResponse struct {
	Token string                    `json:"token"`
	User  *models.AuthenticatedUser `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo     *Repository
	jwt      *JWTService
	store    *session.Store
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, store *session.Store, registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, store: store, registry: registry, logger: logger}
}

// storeSource restores a session from the session store by ID.
func (h *Handler) storeSource(sessionID string) SessionSource {
	return SessionSourceFunc(func(ctx context.Context) (*Session, error) {
		rec, err := h.store.Get(ctx, sessionID)
		if err != nil || rec == nil {
			return nil, err
		}
		return &Session{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Email:     rec.Email,
			Token:     rec.Token,
			ExpiresAt: rec.ExpiresAt,
		}, nil
	})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	profile, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, profile.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, sessionID, err := h.jwt.Generate(profile.ID, profile.Email, profile.Role, profile.Region)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	sess := Session{
		ID:        sessionID,
		UserID:    profile.ID,
		Email:     profile.Email,
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwt.Expiry()),
	}
	if err := h.store.Save(c.Request.Context(), session.Record(sess)); err != nil {
		h.logger.Warn("session save failed", zap.Error(err))
	}

	hyd := h.registry.Obtain(sessionID, h.storeSource(sessionID))
	hyd.Dispatch(Event{Kind: EventSignedIn, Session: &sess})

	response.OK(c, TokenResponse{Token: token, User: mergeUser(sess, profile)})
}

// Refresh handles POST /auth/refresh (JWT required). Issues a fresh token
// and silently re-hydrates role/region; must never flash a loading screen.
func (h *Handler) Refresh(c *gin.Context) {
	claims := ClaimsFrom(c)

	token, sessionID, err := h.jwt.Generate(claims.UserID, claims.Email, claims.Role, claims.Region)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	sess := Session{
		ID:        sessionID,
		UserID:    claims.UserID,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwt.Expiry()),
	}
	if err := h.store.Save(c.Request.Context(), session.Record(sess)); err != nil {
		h.logger.Warn("session save failed", zap.Error(err))
	}
	_ = h.store.Revoke(c.Request.Context(), claims.ID)

	hyd := h.registry.Rekey(claims.ID, sessionID)
	if hyd == nil {
		hyd = h.registry.Obtain(sessionID, h.storeSource(sessionID))
	}
	hyd.Dispatch(Event{Kind: EventTokenRefreshed, Session: &sess})

	response.OK(c, TokenResponse{Token: token, User: h.registry.Get(sessionID).Snapshot().User})
}

// Logout handles POST /auth/logout. Local state is always cleared, even
// when the store revoke fails.
func (h *Handler) Logout(c *gin.Context) {
	claims := ClaimsFrom(c)

	if hyd := h.registry.Get(claims.ID); hyd != nil {
		hyd.Dispatch(Event{Kind: EventSignedOut})
	}
	_ = h.store.Revoke(c.Request.Context(), claims.ID)
	h.registry.Remove(claims.ID)

	response.OK(c, gin.H{"logged_out": true})
}

// SessionView handles GET /auth/session: the published {user, loading}
// snapshot for the caller's session.
func (h *Handler) SessionView(c *gin.Context) {
	claims := ClaimsFrom(c)
	hyd := h.registry.Obtain(claims.ID, h.storeSource(claims.ID))
	response.OK(c, hyd.Snapshot())
}
