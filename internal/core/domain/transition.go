package domain

import "time"

// TransitionKind labels a change of a context's session state.
type TransitionKind string

const (
	TransitionLogin     TransitionKind = "login"
	TransitionLogout    TransitionKind = "logout"
	TransitionExpired   TransitionKind = "expired"
	TransitionMalformed TransitionKind = "malformed"
	TransitionReplaced  TransitionKind = "replaced"
)

// SessionTransition records one state change of a context's session, for the
// audit trail.
type SessionTransition struct {
	ProfileID string
	ContextID string
	Kind      TransitionKind
	Trigger   string
	From      Session
	To        Session
	At        time.Time
}
