package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/infrastructure/db/memory"
)

const waitFor = time.Second

type recordingRecorder struct {
	mu          sync.Mutex
	transitions []domain.SessionTransition
}

func (r *recordingRecorder) Record(t domain.SessionTransition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recordingRecorder) kinds() []domain.TransitionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TransitionKind, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t.Kind)
	}
	return out
}

func newCell(backend *memory.CredentialBackend, d *SessionDeriver, profileID, contextID string, rec *recordingRecorder) *SessionCell {
	opts := CellOptions{ProfileID: profileID, ContextID: contextID, Log: zerolog.Nop()}
	if rec != nil {
		opts.Recorder = rec
	}
	return NewSessionCell(backend.Store(profileID, contextID), d, opts)
}

func watch(t *testing.T, cell *SessionCell) <-chan domain.Session {
	t.Helper()
	ch := make(chan domain.Session, 8)
	ctx, cancel := context.WithCancel(context.Background())
	stop := cell.Watch(ctx, func(s domain.Session, _ Outcome) { ch <- s })
	t.Cleanup(func() {
		stop()
		cancel()
	})
	return ch
}

func next(t *testing.T, ch <-chan domain.Session) domain.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(waitFor):
		t.Fatalf("no session notification within %s", waitFor)
		return domain.Session{}
	}
}

func TestSessionCell_StartsAnonymous(t *testing.T) {
	cell := newCell(memory.NewCredentialBackend(), newTestDeriver(), "p1", "tab-a", nil)
	if cell.Current() != domain.Anonymous() {
		t.Fatalf("new cell should be anonymous, got %+v", cell.Current())
	}
}

func TestSessionCell_LoginPropagatesToOtherContext(t *testing.T) {
	backend := memory.NewCredentialBackend()
	d := newTestDeriver()
	a := newCell(backend, d, "p1", "tab-a", nil)
	b := newCell(backend, d, "p1", "tab-b", nil)
	ctx := context.Background()

	a.Refresh(ctx, TriggerMount)
	b.Refresh(ctx, TriggerMount)
	updates := watch(t, b)

	got, outcome := a.Login(ctx, credentialFor(t, "ROLE_APPLICANT", true, testNow.Add(time.Hour)))
	if outcome != OutcomeValid {
		t.Fatalf("unexpected outcome: %s", outcome)
	}

	seen := next(t, updates)
	if seen != got {
		t.Fatalf("tab-b saw %+v, tab-a holds %+v", seen, got)
	}
	if b.Current() != a.Current() {
		t.Fatalf("contexts disagree: %+v vs %+v", b.Current(), a.Current())
	}
}

func TestSessionCell_LogoutIsImmediateAndPropagates(t *testing.T) {
	backend := memory.NewCredentialBackend()
	d := newTestDeriver()
	ctx := context.Background()
	cred := credentialFor(t, "ROLE_HR", true, testNow.Add(time.Hour))

	a := newCell(backend, d, "p1", "tab-a", nil)
	b := newCell(backend, d, "p1", "tab-b", nil)
	a.Login(ctx, cred)
	b.Refresh(ctx, TriggerMount)
	if !b.Current().Holds(domain.RoleHR) {
		t.Fatalf("tab-b should see the HR session, got %+v", b.Current())
	}
	updates := watch(t, b)

	if s := a.Logout(ctx); s != domain.Anonymous() {
		t.Fatalf("logout should return anonymous, got %+v", s)
	}
	if a.Current() != domain.Anonymous() {
		t.Fatalf("tab-a should be anonymous right after logout")
	}

	if s := next(t, updates); s.Authenticated {
		t.Fatalf("tab-b should drop to anonymous, got %+v", s)
	}
}

func TestSessionCell_OwnChangesAreNotDelivered(t *testing.T) {
	backend := memory.NewCredentialBackend()
	a := newCell(backend, newTestDeriver(), "p1", "tab-a", nil)
	ctx := context.Background()
	updates := watch(t, a)

	a.Login(ctx, credentialFor(t, "ROLE_APPLICANT", true, testNow.Add(time.Hour)))

	select {
	case s := <-updates:
		t.Fatalf("own change delivered: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionCell_OtherProfilesAreIsolated(t *testing.T) {
	backend := memory.NewCredentialBackend()
	d := newTestDeriver()
	ctx := context.Background()
	a := newCell(backend, d, "p1", "tab-a", nil)
	other := newCell(backend, d, "p2", "tab-a", nil)
	updates := watch(t, other)

	a.Login(ctx, credentialFor(t, "ROLE_APPLICANT", true, testNow.Add(time.Hour)))

	select {
	case s := <-updates:
		t.Fatalf("change leaked across profiles: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
	if s, _ := other.Refresh(ctx, TriggerFocus); s.Authenticated {
		t.Fatalf("profile p2 should stay anonymous, got %+v", s)
	}
}

func TestSessionCell_ReplacementIsFull(t *testing.T) {
	backend := memory.NewCredentialBackend()
	d := newTestDeriver()
	ctx := context.Background()
	rec := &recordingRecorder{}

	a := newCell(backend, d, "p1", "tab-a", rec)
	b := newCell(backend, d, "p1", "tab-b", nil)
	a.Login(ctx, credentialFor(t, "ROLE_HR", true, testNow.Add(time.Hour)))
	updates := watch(t, a)

	b.Login(ctx, credentialFor(t, "ROLE_APPLICANT", false, testNow.Add(time.Hour)))

	s := next(t, updates)
	want := domain.NewSession(domain.RoleApplicant, false)
	if s != want {
		t.Fatalf("expected %+v, got %+v", want, s)
	}

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != domain.TransitionLogin || kinds[1] != domain.TransitionReplaced {
		t.Fatalf("unexpected transitions: %v", kinds)
	}
}

func TestSessionCell_FocusDetectsExpiry(t *testing.T) {
	backend := memory.NewCredentialBackend()
	now := testNow
	d := NewSessionDeriver(zerolog.Nop()).WithClock(func() time.Time { return now })
	ctx := context.Background()
	rec := &recordingRecorder{}

	cell := newCell(backend, d, "p1", "tab-a", rec)
	cell.Login(ctx, credentialFor(t, "ROLE_APPLICANT", true, testNow.Add(time.Minute)))

	now = testNow.Add(2 * time.Minute)
	s, outcome := cell.Refresh(ctx, TriggerFocus)
	if s.Authenticated || outcome != OutcomeExpired {
		t.Fatalf("expected expired anonymous session, got %+v (%s)", s, outcome)
	}
	if _, ok := backend.Store("p1", "tab-b").Get(ctx); ok {
		t.Fatalf("expired credential should be cleared for every context")
	}

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[1] != domain.TransitionExpired {
		t.Fatalf("unexpected transitions: %v", kinds)
	}
}

func TestSessionCell_MountSetsBaselineWithoutTransition(t *testing.T) {
	backend := memory.NewCredentialBackend()
	ctx := context.Background()
	backend.Store("p1", "tab-a").Set(ctx, credentialFor(t, "ROLE_HR", true, testNow.Add(time.Hour)))
	rec := &recordingRecorder{}

	cell := newCell(backend, newTestDeriver(), "p1", "tab-b", rec)
	if s, _ := cell.Refresh(ctx, TriggerMount); !s.Holds(domain.RoleHR) {
		t.Fatalf("expected HR session, got %+v", s)
	}
	if kinds := rec.kinds(); len(kinds) != 0 {
		t.Fatalf("mount should not record a transition, got %v", kinds)
	}

	cell.Logout(ctx)
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != domain.TransitionLogout {
		t.Fatalf("unexpected transitions: %v", kinds)
	}
}

func TestSessionCell_MountReportsMalformed(t *testing.T) {
	backend := memory.NewCredentialBackend()
	ctx := context.Background()
	backend.Store("p1", "tab-a").Set(ctx, "garbage")
	rec := &recordingRecorder{}

	cell := newCell(backend, newTestDeriver(), "p1", "tab-b", rec)
	cell.Refresh(ctx, TriggerMount)

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != domain.TransitionMalformed {
		t.Fatalf("unexpected transitions: %v", kinds)
	}
}

func TestSessionCell_CredentialOnlyWhileAuthenticated(t *testing.T) {
	backend := memory.NewCredentialBackend()
	ctx := context.Background()
	cell := newCell(backend, newTestDeriver(), "p1", "tab-a", nil)

	if _, ok := cell.Credential(ctx); ok {
		t.Fatalf("anonymous cell must not expose a credential")
	}

	cred := credentialFor(t, "ROLE_APPLICANT", true, testNow.Add(time.Hour))
	cell.Login(ctx, cred)
	got, ok := cell.Credential(ctx)
	if !ok || got != cred {
		t.Fatalf("expected stored credential, got %q (%v)", got, ok)
	}

	cell.Discard(ctx, TriggerRejected)
	if _, ok := cell.Credential(ctx); ok {
		t.Fatalf("discarded credential still exposed")
	}
}
