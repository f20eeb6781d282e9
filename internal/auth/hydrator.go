package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
)

// State identifies where a hydration cycle currently is.
type State string

const (
	StateInit             State = "init"
	StateRestoringSession State = "restoring_session"
	StateHydratingProfile State = "hydrating_profile"
	StateRefreshing       State = "refreshing"
	StateReady            State = "ready"
	StateUnauthenticated  State = "unauthenticated"
)

// Session is the credential identity a hydration cycle starts from.
type Session struct {
	ID        string
	UserID    uuid.UUID
	Email     string
	Token     string
	ExpiresAt time.Time
}

// EventKind is the kind of backend auth event driving the machine.
type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is an auth event with its session (nil for sign-out).
type Event struct {
	Kind    EventKind
	Session *Session
}

// Snapshot is the single auth view published to the rest of the app.
// User is nil when unauthenticated; Loading is true only during the first
// resolution of a session transition, never during background refresh.
type Snapshot struct {
	User    *models.AuthenticatedUser `json:"user"`
	Loading bool                      `json:"loading"`
}

// ProfileSource resolves the durable profile for a session subject.
type ProfileSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// SessionSource restores the current session at startup. Returning
// (nil, nil) means no session; an error is treated the same way.
type SessionSource interface {
	Current(ctx context.Context) (*Session, error)
}

// Options bounds the hydration cycle. ProfileTimeout limits how long a
// cycle waits for the profile row before falling back to defaults;
// HydrateDeadline is the outer failsafe that unconditionally clears the
// loading flag.
type Options struct {
	ProfileTimeout  time.Duration
	HydrateDeadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.ProfileTimeout <= 0 {
		o.ProfileTimeout = 3 * time.Second
	}
	if o.HydrateDeadline <= 0 {
		o.HydrateDeadline = 8 * time.Second
	}
	return o
}

// Hydrator turns sessions into published AuthenticatedUsers despite the
// session/profile lookups being asynchronous and fallible. It is the sole
// writer of its Snapshot; events are processed strictly in arrival order
// by a single goroutine, and a stale in-flight lookup can never overwrite
// the outcome of a later event (generation check).
type Hydrator struct {
	sessions SessionSource
	profiles ProfileSource
	opts     Options
	logger   *zap.Logger

	mu   sync.RWMutex
	snap Snapshot

	events    chan Event
	results   chan hydrateResult
	deadlines chan uint64
	stop      chan struct{}
	stopOnce  sync.Once

	// Loop-owned; never touched outside run().
	gen       uint64
	state     State
	resolved  bool
	failsafed bool
}

type hydrateResult struct {
	gen      uint64
	user     *models.AuthenticatedUser
	session  *Session // non-nil only for restore results
	restored bool
}

// NewHydrator creates a hydrator. Call Start to begin session restore.
func NewHydrator(sessions SessionSource, profiles ProfileSource, opts Options, logger *zap.Logger) *Hydrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hydrator{
		sessions:  sessions,
		profiles:  profiles,
		opts:      opts.withDefaults(),
		logger:    logger,
		events:    make(chan Event, 16),
		results:   make(chan hydrateResult, 16),
		deadlines: make(chan uint64, 16),
		stop:      make(chan struct{}),
		state:     StateInit,
	}
}

// Start launches the event loop and the initial session restore. The
// loading snapshot is published before the loop runs, so a Snapshot racing
// Start never reports a restorable session as settled-unauthenticated.
func (h *Hydrator) Start(ctx context.Context) {
	h.publish(nil, true)
	go h.run(ctx)
}

// Stop terminates the event loop. Pending lookups are abandoned.
func (h *Hydrator) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Dispatch hands an auth event to the machine. Events are applied in the
// order dispatched.
func (h *Hydrator) Dispatch(e Event) {
	select {
	case h.events <- e:
	case <-h.stop:
	}
}

// Snapshot returns the current published {user, loading} view.
func (h *Hydrator) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

func (h *Hydrator) run(ctx context.Context) {
	h.beginRestore()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case e := <-h.events:
			h.handleEvent(e)
		case r := <-h.results:
			h.handleResult(r)
		case g := <-h.deadlines:
			h.handleDeadline(g)
		}
	}
}

func (h *Hydrator) publish(user *models.AuthenticatedUser, loading bool) {
	h.mu.Lock()
	h.snap = Snapshot{User: user, Loading: loading}
	h.mu.Unlock()
}

// armFailsafe guarantees loading cannot stay true past the deadline, no
// matter what the in-flight lookups do.
func (h *Hydrator) armFailsafe(gen uint64) {
	time.AfterFunc(h.opts.HydrateDeadline, func() {
		select {
		case h.deadlines <- gen:
		case <-h.stop:
		}
	})
}

func (h *Hydrator) beginRestore() {
	h.gen++
	h.resolved = false
	h.failsafed = false
	h.state = StateRestoringSession
	h.publish(nil, true)
	h.armFailsafe(h.gen)

	gen := h.gen
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.ProfileTimeout)
		defer cancel()
		sess, err := h.sessions.Current(ctx)
		if err != nil {
			// Failing closed to logged-out only denies access; it can
			// never grant excess privilege.
			h.logger.Warn("session restore failed", zap.Error(err))
			sess = nil
		}
		select {
		case h.results <- hydrateResult{gen: gen, session: sess, restored: true}:
		case <-h.stop:
		}
	}()
}

// beginHydrate kicks off a profile lookup for the current generation. The
// lookup itself is never cancelled: the timeout means "stop waiting", and a
// row that arrives late is still applied last-write-wins. Loading and the
// failsafe are managed by the callers; once the failsafe has fired for a
// cycle, loading stays false no matter what resolves afterwards.
func (h *Hydrator) beginHydrate(sess Session, silent bool) {
	if silent {
		h.state = StateRefreshing
	} else {
		h.state = StateHydratingProfile
		if !h.failsafed {
			h.mu.Lock()
			h.snap.Loading = true
			h.mu.Unlock()
		}
	}

	gen := h.gen
	go func() {
		rows := make(chan *models.Profile, 1)
		go func() {
			p, err := h.profiles.GetByID(context.Background(), sess.UserID)
			if err != nil {
				if err != ErrProfileNotFound {
					h.logger.Warn("profile lookup failed, using defaults",
						zap.String("user_id", sess.UserID.String()), zap.Error(err))
				}
				rows <- nil
				return
			}
			rows <- p
		}()

		send := func(u *models.AuthenticatedUser) {
			select {
			case h.results <- hydrateResult{gen: gen, user: u}:
			case <-h.stop:
			}
		}

		select {
		case p := <-rows:
			send(mergeUser(sess, p))
		case <-time.After(h.opts.ProfileTimeout):
			h.logger.Warn("profile lookup timed out, using defaults",
				zap.String("user_id", sess.UserID.String()))
			send(mergeUser(sess, nil))
			if p := <-rows; p != nil {
				send(mergeUser(sess, p))
			}
		}
	}()
}

// mergeUser builds the AuthenticatedUser from session identity and profile
// attributes. A missing profile substitutes the lowest-privilege role and
// the default region so downstream guards always see non-empty values.
func mergeUser(sess Session, p *models.Profile) *models.AuthenticatedUser {
	u := &models.AuthenticatedUser{
		ID:     sess.UserID,
		Email:  sess.Email,
		Role:   models.RoleDefault,
		Region: models.RegionDefault,
		Token:  sess.Token,
	}
	if p != nil {
		if p.Role.Valid() {
			u.Role = p.Role
		}
		if p.Region.Valid() {
			u.Region = p.Region
		}
		if p.Email != "" {
			u.Email = p.Email
		}
	}
	return u
}

func (h *Hydrator) handleEvent(e Event) {
	switch e.Kind {
	case EventSignedOut:
		// Wins over anything in flight: bumping the generation makes any
		// pending lookup result stale.
		h.gen++
		h.resolved = true
		h.state = StateUnauthenticated
		h.publish(nil, false)

	case EventSignedIn:
		if e.Session == nil {
			return
		}
		h.gen++
		h.resolved = false
		h.failsafed = false
		h.armFailsafe(h.gen)
		h.beginHydrate(*e.Session, false)

	case EventTokenRefreshed:
		if e.Session == nil {
			return
		}
		h.gen++
		h.resolved = false
		h.failsafed = false
		h.beginHydrate(*e.Session, true)
	}
}

func (h *Hydrator) handleResult(r hydrateResult) {
	if r.gen != h.gen {
		return // superseded by a later event
	}
	if r.restored {
		if r.session == nil {
			h.resolved = true
			h.state = StateUnauthenticated
			h.publish(nil, false)
			return
		}
		h.beginHydrate(*r.session, false)
		return
	}
	h.resolved = true
	h.state = StateReady
	h.publish(r.user, false)
}

func (h *Hydrator) handleDeadline(g uint64) {
	if g != h.gen || h.resolved {
		return
	}
	h.failsafed = true
	h.logger.Warn("hydration failsafe fired, clearing loading flag")
	h.mu.Lock()
	h.snap.Loading = false
	h.mu.Unlock()
}
