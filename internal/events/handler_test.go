package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/audit"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/middleware"
	"github.com/gulfevents/backoffice/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	events   map[uuid.UUID]*models.Event
	lastList Filter
	deleted  []uuid.UUID
}

func newFakeStore(events ...*models.Event) *fakeStore {
	s := &fakeStore{events: map[uuid.UUID]*models.Event{}}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	s.events[e.ID] = e
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, f Filter) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = f
	var out []models.Event
	for _, e := range s.events {
		if f.Region != nil && e.Region != *f.Region {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (s *fakeStore) UpdateSchedule(_ context.Context, id uuid.UUID, eventDate time.Time, endDate *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.EventDate = eventDate
	e.EndDate = endDate
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(s.events, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) GetTotals(_ context.Context, _ uuid.UUID) (*Totals, error) {
	return &Totals{}, nil
}

type memorySink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *memorySink) Insert(_ context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func withClaims(role models.Role, region models.Region) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextClaims, &auth.Claims{
			UserID: uuid.New(),
			Email:  "tester@example.com",
			Role:   role,
			Region: region,
		})
	}
}

func newTestRouter(h *Handler, role models.Role, region models.Region) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withClaims(role, region))
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.POST("/events", h.Create)
	r.PATCH("/events/:id/status", h.UpdateStatus)
	r.DELETE("/events/:id", h.Delete)
	return r
}

func uaeEvent() *models.Event {
	return &models.Event{
		ID:        uuid.New(),
		Title:     "Dubai Expo Booth",
		Region:    models.RegionUAE,
		EventDate: time.Now().Add(48 * time.Hour),
		Status:    models.EventPlanned,
	}
}

func TestListScopesStaffToOwnRegion(t *testing.T) {
	store := newFakeStore(uaeEvent())
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := newTestRouter(h, models.RoleStaff, models.RegionSaudi)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.lastList.Region == nil || *store.lastList.Region != models.RegionSaudi {
		t.Fatalf("staff listing must be scoped to caller region, got %v", store.lastList.Region)
	}
}

func TestListAdminSeesAllRegions(t *testing.T) {
	store := newFakeStore(uaeEvent())
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := newTestRouter(h, models.RoleAdmin, models.RegionSaudi)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.lastList.Region != nil {
		t.Fatalf("admin listing must not be region scoped")
	}
}

func TestGetDeniesCrossRegion(t *testing.T) {
	e := uaeEvent()
	store := newFakeStore(e)
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := newTestRouter(h, models.RoleManager, models.RegionSaudi)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+e.ID.String(), nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-region access must be 403, got %d", w.Code)
	}
}

func TestCreateForcesCallerRegion(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := newTestRouter(h, models.RoleManager, models.RegionUAE)

	body, _ := json.Marshal(map[string]interface{}{
		"title":      "Riyadh Gala",
		"region":     "saudi",
		"event_date": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("manager creating outside own region must be 403, got %d", w.Code)
	}
	if len(store.events) != 0 {
		t.Fatalf("denied create must not touch the store")
	}
}

func TestStatusChangeIsAudited(t *testing.T) {
	e := uaeEvent()
	store := newFakeStore(e)
	sink := &memorySink{}
	rec := audit.NewRecorder(sink, nil, zap.NewNop())
	h := NewHandler(store, nil, rec, zap.NewNop())
	r := newTestRouter(h, models.RoleAdmin, models.RegionUAE)

	body, _ := json.Marshal(map[string]string{"status": "in_progress"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/events/"+e.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	rec.Wait()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) != 1 || sink.entries[0].Action != models.AuditEventStatusChanged {
		t.Fatalf("expected one event_status_changed entry, got %+v", sink.entries)
	}
}

func TestInvalidStatusRejected(t *testing.T) {
	e := uaeEvent()
	store := newFakeStore(e)
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := newTestRouter(h, models.RoleAdmin, models.RegionUAE)

	body, _ := json.Marshal(map[string]string{"status": "archived"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/events/"+e.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must be 400, got %d", w.Code)
	}
	if store.events[e.ID].Status != models.EventPlanned {
		t.Fatalf("status must not change on invalid input")
	}
}

// adminGatedRouter mounts the status route behind the admin role gate, the
// way the server registers it.
func adminGatedRouter(h *Handler, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextClaims, &auth.Claims{
			UserID: uuid.New(),
			Email:  "tester@example.com",
			Role:   role,
			Region: models.RegionUAE,
		})
		c.Set(middleware.ContextUserRole, role)
	})
	r.PATCH("/events/:id/status", middleware.RequireRole(models.RoleAdmin), h.UpdateStatus)
	return r
}

func TestStatusChangeDeniedToManager(t *testing.T) {
	e := uaeEvent()
	store := newFakeStore(e)
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := adminGatedRouter(h, models.RoleManager)

	body, _ := json.Marshal(map[string]string{"status": "in_progress"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/events/"+e.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("manager changing event status must be 403, got %d", w.Code)
	}
	if store.events[e.ID].Status != models.EventPlanned {
		t.Fatalf("denied status change must not reach the store")
	}
}

func TestStatusChangeAllowedForAdmin(t *testing.T) {
	e := uaeEvent()
	store := newFakeStore(e)
	h := NewHandler(store, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
	r := adminGatedRouter(h, models.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"status": "in_progress"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/events/"+e.ID.String()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.events[e.ID].Status != models.EventInProgress {
		t.Fatalf("status = %q, want in_progress", store.events[e.ID].Status)
	}
}
