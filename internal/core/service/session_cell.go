package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

// Trigger names what caused a re-derivation.
type Trigger string

const (
	TriggerMount   Trigger = "mount"
	TriggerStorage Trigger = "storage"
	TriggerFocus   Trigger = "focus"
	TriggerLogin   Trigger = "login"
	TriggerLogout  Trigger = "logout"

	// TriggerRejected marks a credential the upstream API answered 401 for.
	TriggerRejected Trigger = "rejected"
)

// CellOptions identifies the context a cell belongs to.
type CellOptions struct {
	ProfileID string
	ContextID string
	// Recorder receives transitions. Optional.
	Recorder ports.TransitionRecorder
	Log      zerolog.Logger
}

// SessionCell owns one browsing context's session. It is the only writer of
// that session: every trigger reads the store, derives, and replaces the
// whole value, so the last derivation wins.
type SessionCell struct {
	store   ports.CredentialStore
	deriver *SessionDeriver
	opts    CellOptions

	mu      sync.Mutex
	current domain.Session
	mounted bool
}

// NewSessionCell returns a cell in the anonymous state. Call Refresh with
// TriggerMount to load the initial session; that first derivation sets the
// baseline and is not reported as a transition unless it discarded the
// credential.
func NewSessionCell(store ports.CredentialStore, deriver *SessionDeriver, opts CellOptions) *SessionCell {
	return &SessionCell{
		store:   store,
		deriver: deriver,
		opts:    opts,
		current: domain.Anonymous(),
	}
}

// Current returns the last derived session.
func (c *SessionCell) Current() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Refresh re-derives the session from the store and replaces the current one.
func (c *SessionCell) Refresh(ctx context.Context, trigger Trigger) (domain.Session, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, outcome := c.deriver.Derive(ctx, c.store)
	c.replace(next, outcome, trigger)
	return next, outcome
}

// Login stores credential and derives the session it grants.
func (c *SessionCell) Login(ctx context.Context, credential string) (domain.Session, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(ctx, credential)
	next, outcome := c.deriver.Derive(ctx, c.store)
	c.replace(next, outcome, TriggerLogin)
	return next, outcome
}

// Logout clears the store and drops to the anonymous session before returning.
func (c *SessionCell) Logout(ctx context.Context) domain.Session {
	return c.Discard(ctx, TriggerLogout)
}

// Discard clears the store on behalf of trigger and drops to anonymous.
func (c *SessionCell) Discard(ctx context.Context, trigger Trigger) domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Clear(ctx)
	c.replace(domain.Anonymous(), OutcomeAbsent, trigger)
	return c.current
}

// Credential returns the stored credential while the current session is
// authenticated. It reads the store, so a credential replaced by another
// context is what gets returned.
func (c *SessionCell) Credential(ctx context.Context) (string, bool) {
	c.mu.Lock()
	authenticated := c.current.Authenticated
	c.mu.Unlock()

	if !authenticated {
		return "", false
	}
	return c.store.Get(ctx)
}

// Watch re-derives the session whenever another context of the profile
// changes the credential and passes the result to notify. The subscription
// lasts until the returned function is called or ctx is done.
func (c *SessionCell) Watch(ctx context.Context, notify func(domain.Session, Outcome)) (stop func()) {
	return c.store.Subscribe(ctx, func(change ports.CredentialChange) {
		s, outcome := c.Refresh(ctx, TriggerStorage)
		if notify != nil {
			notify(s, outcome)
		}
	})
}

// replace must be called with mu held.
func (c *SessionCell) replace(next domain.Session, outcome Outcome, trigger Trigger) {
	prev := c.current
	c.current = next

	kind, changed := transitionKind(prev, next, outcome, trigger)
	baseline := !c.mounted
	c.mounted = true
	if !changed {
		return
	}
	if baseline && trigger == TriggerMount && kind != domain.TransitionExpired && kind != domain.TransitionMalformed {
		return
	}

	c.opts.Log.Debug().
		Str("profile_id", c.opts.ProfileID).
		Str("context_id", c.opts.ContextID).
		Str("trigger", string(trigger)).
		Str("transition", string(kind)).
		Str("role", next.Role.String()).
		Bool("approved", next.Approved).
		Msg("session changed")

	if c.opts.Recorder != nil {
		c.opts.Recorder.Record(domain.SessionTransition{
			ProfileID: c.opts.ProfileID,
			ContextID: c.opts.ContextID,
			Kind:      kind,
			Trigger:   string(trigger),
			From:      prev,
			To:        next,
			At:        time.Now().UTC(),
		})
	}
}

// transitionKind classifies prev -> next. Expired and malformed outcomes are
// reported even when the context had not yet seen the credential, so the
// audit trail keeps every discarded credential.
func transitionKind(prev, next domain.Session, outcome Outcome, trigger Trigger) (domain.TransitionKind, bool) {
	switch outcome {
	case OutcomeExpired:
		return domain.TransitionExpired, true
	case OutcomeMalformed:
		return domain.TransitionMalformed, true
	}

	if prev == next {
		return "", false
	}
	switch {
	case prev.IsAnonymous():
		return domain.TransitionLogin, true
	case next.IsAnonymous():
		return domain.TransitionLogout, true
	default:
		return domain.TransitionReplaced, true
	}
}
