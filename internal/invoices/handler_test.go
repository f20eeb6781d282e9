package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/audit"
	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/models"
)

type fakeStore struct {
	mu            sync.Mutex
	invoices      map[uuid.UUID]*models.Invoice
	materialsCost float64
	nextSeq       int
	failCreates   int
	createCalls   int
	lastRegion    *models.Region
	listed        bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: map[uuid.UUID]*models.Invoice{}}
}

func (s *fakeStore) NextNumber(_ context.Context, issueDate time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return fmt.Sprintf("INV-%s-%04d", issueDate.Format("200601"), s.nextSeq), nil
}

func (s *fakeStore) Create(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreates > 0 {
		s.failCreates--
		return &pgconn.PgError{Code: "23505", ConstraintName: "invoices_invoice_number_key"}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, region *models.Region) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed = true
	s.lastRegion = region
	var out []models.Invoice
	for _, inv := range s.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (s *fakeStore) InvoicesByEvent(_ context.Context, eventID uuid.UUID) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.EventID == eventID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; !ok {
		return ErrInvoiceNotFound
	}
	delete(s.invoices, id)
	return nil
}

func (s *fakeStore) MaterialsCost(_ context.Context, _ uuid.UUID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materialsCost, nil
}

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
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
	r.GET("/invoices", h.List)
	r.POST("/events/:id/invoices", h.Create)
	return r
}

func newTestHandler(store *fakeStore, events *fakeEvents) *Handler {
	return NewHandler(store, events, nil, audit.NewRecorder(&memorySink{}, nil, zap.NewNop()), zap.NewNop())
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
	store := newFakeStore()
	h := newTestHandler(store, &fakeEvents{})
	r := newTestRouter(h, models.RoleStaff, models.RegionSaudi)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !store.listed {
		t.Fatal("listing never reached the store")
	}
	if store.lastRegion == nil || *store.lastRegion != models.RegionSaudi {
		t.Fatalf("staff listing must be scoped to caller region, got %v", store.lastRegion)
	}
}

func TestListAdminSeesAllRegions(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeEvents{})
	r := newTestRouter(h, models.RoleAdmin, models.RegionSaudi)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.lastRegion != nil {
		t.Fatalf("admin listing must not be region scoped, got %v", *store.lastRegion)
	}
}

func postInvoice(t *testing.T, r *gin.Engine, eventID uuid.UUID, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/events/"+eventID.String()+"/invoices", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDefaultsAmountToMaterialCost(t *testing.T) {
	event := uaeEvent()
	store := newFakeStore()
	store.materialsCost = 1250.50
	h := newTestHandler(store, &fakeEvents{events: map[uuid.UUID]*models.Event{event.ID: event}})
	r := newTestRouter(h, models.RoleManager, models.RegionUAE)

	w := postInvoice(t, r, event.ID, map[string]interface{}{
		"client_name": "Acme Trading",
		"due_date":    time.Now().Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data models.Invoice `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.TotalAmount != 1250.50 {
		t.Fatalf("total_amount = %v, want the event's material cost 1250.50", resp.Data.TotalAmount)
	}
}

func TestCreateWithoutAmountOrMaterialsRejected(t *testing.T) {
	event := uaeEvent()
	store := newFakeStore()
	h := newTestHandler(store, &fakeEvents{events: map[uuid.UUID]*models.Event{event.ID: event}})
	r := newTestRouter(h, models.RoleManager, models.RegionUAE)

	w := postInvoice(t, r, event.ID, map[string]interface{}{
		"client_name": "Acme Trading",
		"due_date":    time.Now().Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatal("store must not be touched when the amount cannot be derived")
	}
}

func TestCreateRetriesOnDuplicateNumber(t *testing.T) {
	event := uaeEvent()
	store := newFakeStore()
	store.failCreates = 1
	h := newTestHandler(store, &fakeEvents{events: map[uuid.UUID]*models.Event{event.ID: event}})
	r := newTestRouter(h, models.RoleManager, models.RegionUAE)

	w := postInvoice(t, r, event.ID, map[string]interface{}{
		"client_name": "Acme Trading",
		"amount":      500.0,
		"due_date":    time.Now().Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.createCalls != 2 {
		t.Fatalf("createCalls = %d, want a retry after the duplicate number", store.createCalls)
	}
	var resp struct {
		Data models.Invoice `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(resp.Data.InvoiceNumber, "-0002") {
		t.Fatalf("invoice_number = %q, want the re-allocated -0002", resp.Data.InvoiceNumber)
	}
}
