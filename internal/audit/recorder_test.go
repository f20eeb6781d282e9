package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
)

type fakeSink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (f *fakeSink) Insert(_ context.Context, e models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeSink) all() []models.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AuditEntry(nil), f.entries...)
}

func testActor() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		ID:     uuid.New(),
		Email:  "manager@example.com",
		Role:   models.RoleManager,
		Region: models.RegionUAE,
	}
}

func TestRecorderWritesEntry(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink, nil, zap.NewNop())

	actor := testActor()
	entityID := uuid.New()
	rec.Record(actor, models.AuditEventCreated, "created event X", &entityID, nil)
	rec.Wait()

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.Action != models.AuditEventCreated {
		t.Errorf("action = %q", e.Action)
	}
	if e.UserID != actor.ID || e.UserEmail != actor.Email {
		t.Errorf("actor fields not carried: %+v", e)
	}
	if e.Region != models.RegionUAE {
		t.Errorf("region = %q, want actor region", e.Region)
	}
	if e.EntityID == nil || *e.EntityID != entityID {
		t.Errorf("entity id not carried")
	}
}

func TestRecorderNilActorIsNoop(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink, nil, zap.NewNop())

	rec.Record(nil, models.AuditEventDeleted, "should not record", nil, nil)
	rec.Wait()

	if len(sink.all()) != 0 {
		t.Fatalf("nil actor must not produce entries")
	}
}

func TestRecorderRegionOverride(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink, nil, zap.NewNop())

	saudi := models.RegionSaudi
	rec.Record(testActor(), models.AuditRegionChanged, "moved user", nil, &saudi)
	rec.Wait()

	got := sink.all()
	if len(got) != 1 || got[0].Region != models.RegionSaudi {
		t.Fatalf("explicit region not used: %+v", got)
	}
}

func TestRecorderSwallowsSinkFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	rec := NewRecorder(sink, nil, zap.NewNop())

	// Must not panic or surface the error to the caller.
	rec.Record(testActor(), models.AuditPaymentStatusChanged, "marked paid", nil, nil)
	rec.Wait()
}
