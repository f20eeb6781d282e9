package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
)

// Sink persists audit entries. Satisfied by *Repository.
type Sink interface {
	Insert(ctx context.Context, e models.AuditEntry) error
}

// Feed receives entries for live delivery. Satisfied by the realtime hub.
type Feed interface {
	PublishAudit(e models.AuditEntry)
}

// Recorder writes audit entries without blocking the caller. Failures are
// logged and swallowed: an audit outage must never break the mutation that
// triggered it.
type Recorder struct {
	sink    Sink
	feed    Feed
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRecorder creates a recorder. feed may be nil.
func NewRecorder(sink Sink, feed Feed, logger *zap.Logger) *Recorder {
	return &Recorder{sink: sink, feed: feed, logger: logger, timeout: 5 * time.Second}
}

// Record appends an entry asynchronously. A nil actor is a no-op: unattributed
// mutations are not recorded. If region is nil the actor's region is used.
func (r *Recorder) Record(actor *models.AuthenticatedUser, action, description string, entityID *uuid.UUID, region *models.Region) {
	if r == nil || actor == nil {
		return
	}
	reg := actor.Region
	if region != nil {
		reg = *region
	}
	entry := models.AuditEntry{
		Action:      action,
		Description: description,
		UserID:      actor.ID,
		UserEmail:   actor.Email,
		Role:        actor.Role,
		Region:      reg,
		EntityID:    entityID,
		CreatedAt:   time.Now().UTC(),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.Insert(ctx, entry); err != nil {
			r.logger.Warn("audit write failed",
				zap.String("action", action),
				zap.String("user_id", actor.ID.String()),
				zap.Error(err))
			return
		}
		if r.feed != nil {
			r.feed.PublishAudit(entry)
		}
	}()
}

// Wait blocks until all in-flight writes finish. Called on shutdown.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
