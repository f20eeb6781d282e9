package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/internal/models"
)

// fakeSessions serves a fixed session or error, optionally blocking until
// release is closed.
type fakeSessions struct {
	sess    *Session
	err     error
	release chan struct{}
}

func (f *fakeSessions) Current(_ context.Context) (*Session, error) {
	if f.release != nil {
		<-f.release
	}
	return f.sess, f.err
}

// fakeProfiles serves a fixed profile or error, optionally blocking until
// release is closed.
type fakeProfiles struct {
	profile *models.Profile
	err     error
	release chan struct{}
}

func (f *fakeProfiles) GetByID(_ context.Context, _ uuid.UUID) (*models.Profile, error) {
	if f.release != nil {
		<-f.release
	}
	return f.profile, f.err
}

func testSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		UserID:    uuid.New(),
		Email:     "user@example.com",
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func fastOpts() Options {
	return Options{ProfileTimeout: 50 * time.Millisecond, HydrateDeadline: 400 * time.Millisecond}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func(Snapshot) bool, h *Hydrator, msg string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		s := h.Snapshot()
		if cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s (snapshot: %+v)", msg, h.Snapshot())
	return Snapshot{}
}

func TestSnapshotShowsLoadingImmediatelyAfterStart(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := NewHydrator(&fakeSessions{sess: testSession(), release: release}, &fakeProfiles{}, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	// The restore is still blocked; the snapshot must already say loading
	// rather than settled-unauthenticated.
	if s := h.Snapshot(); !s.Loading || s.User != nil {
		t.Fatalf("snapshot right after Start = %+v, want loading with nil user", s)
	}
}

func TestRestoreWithoutSessionSettlesUnauthenticated(t *testing.T) {
	h := NewHydrator(&fakeSessions{}, &fakeProfiles{}, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	s := waitFor(t, time.Second, func(s Snapshot) bool { return !s.Loading }, h,
		"loading never cleared")
	if s.User != nil {
		t.Fatalf("no session must publish nil user, got %+v", s.User)
	}
}

func TestRestoreHydratesProfile(t *testing.T) {
	sess := testSession()
	profiles := &fakeProfiles{profile: &models.Profile{
		ID:     sess.UserID,
		Email:  "manager@example.com",
		Role:   models.RoleManager,
		Region: models.RegionSaudi,
	}}
	h := NewHydrator(&fakeSessions{sess: sess}, profiles, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	s := waitFor(t, time.Second, func(s Snapshot) bool { return s.User != nil && !s.Loading }, h,
		"never reached ready")
	if s.User.Role != models.RoleManager || s.User.Region != models.RegionSaudi {
		t.Fatalf("profile attributes not applied: %+v", s.User)
	}
	if s.User.Email != "manager@example.com" {
		t.Fatalf("profile email must win over session email, got %q", s.User.Email)
	}
}

func TestProfileFailureFallsBackToLowestPrivilege(t *testing.T) {
	sess := testSession()
	profiles := &fakeProfiles{err: errors.New("database down")}
	h := NewHydrator(&fakeSessions{sess: sess}, profiles, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	s := waitFor(t, time.Second, func(s Snapshot) bool { return s.User != nil && !s.Loading }, h,
		"never resolved")
	if s.User.Role != models.RoleStaff {
		t.Fatalf("failed lookup must default to staff, got %q", s.User.Role)
	}
	if s.User.Region != models.RegionUAE {
		t.Fatalf("failed lookup must default to uae, got %q", s.User.Region)
	}
}

func TestFailsafeClearsLoadingWhileLookupHangs(t *testing.T) {
	sess := testSession()
	profiles := &fakeProfiles{release: make(chan struct{})}
	defer close(profiles.release)

	// Deadline shorter than the profile wait so the failsafe fires first.
	opts := Options{ProfileTimeout: 2 * time.Second, HydrateDeadline: 60 * time.Millisecond}
	h := NewHydrator(&fakeSessions{sess: sess}, profiles, opts, zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	waitFor(t, time.Second, func(s Snapshot) bool { return !s.Loading }, h,
		"failsafe did not clear loading")
}

func TestSignOutWinsOverInFlightHydration(t *testing.T) {
	profiles := &fakeProfiles{
		profile: &models.Profile{Role: models.RoleAdmin, Region: models.RegionUAE},
		release: make(chan struct{}),
	}
	h := NewHydrator(&fakeSessions{}, profiles, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	waitFor(t, time.Second, func(s Snapshot) bool { return !s.Loading }, h, "restore never settled")

	sess := testSession()
	h.Dispatch(Event{Kind: EventSignedIn, Session: sess})
	time.Sleep(20 * time.Millisecond)
	h.Dispatch(Event{Kind: EventSignedOut})

	waitFor(t, time.Second, func(s Snapshot) bool { return s.User == nil && !s.Loading }, h,
		"sign-out not applied")

	// Let the stale lookup finish; it must not resurrect the user.
	close(profiles.release)
	time.Sleep(100 * time.Millisecond)
	if s := h.Snapshot(); s.User != nil {
		t.Fatalf("stale hydration result overwrote sign-out: %+v", s.User)
	}
}

func TestTokenRefreshNeverTogglesLoading(t *testing.T) {
	sess := testSession()
	profiles := &fakeProfiles{profile: &models.Profile{
		ID: sess.UserID, Role: models.RoleManager, Region: models.RegionUAE,
	}}
	h := NewHydrator(&fakeSessions{sess: sess}, profiles, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	waitFor(t, time.Second, func(s Snapshot) bool { return s.User != nil && !s.Loading }, h,
		"never reached ready")

	// Block the re-hydration triggered by the refresh and watch loading.
	profiles.release = make(chan struct{})
	refreshed := *sess
	refreshed.Token = "tok2"
	h.Dispatch(Event{Kind: EventTokenRefreshed, Session: &refreshed})

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		if s := h.Snapshot(); s.Loading {
			t.Fatal("token refresh must not raise the loading flag")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(profiles.release)

	s := waitFor(t, time.Second, func(s Snapshot) bool {
		return s.User != nil && s.User.Token == "tok2" && s.User.Role == models.RoleManager
	}, h, "refreshed token never published")
	if s.User.Role != models.RoleManager {
		t.Fatalf("refresh lost profile role: %+v", s.User)
	}
}

func TestLateProfileRowAppliedLastWriteWins(t *testing.T) {
	sess := testSession()
	profiles := &fakeProfiles{
		profile: &models.Profile{ID: sess.UserID, Role: models.RoleAdmin, Region: models.RegionSaudi},
		release: make(chan struct{}),
	}
	h := NewHydrator(&fakeSessions{sess: sess}, profiles, fastOpts(), zap.NewNop())
	h.Start(context.Background())
	defer h.Stop()

	// The lookup outlives ProfileTimeout, so defaults are published first.
	s := waitFor(t, time.Second, func(s Snapshot) bool { return s.User != nil && !s.Loading }, h,
		"defaults never published")
	if s.User.Role != models.RoleStaff {
		t.Fatalf("timed-out lookup must publish defaults first, got %q", s.User.Role)
	}

	// The real row lands late and still wins.
	close(profiles.release)
	s = waitFor(t, time.Second, func(s Snapshot) bool {
		return s.User != nil && s.User.Role == models.RoleAdmin
	}, h, "late profile row never applied")
	if s.Loading {
		t.Fatal("late result must not re-raise loading")
	}
}
