package domain

// Session is the trust state derived from the stored credential. It is never
// persisted and holds nothing that is not recomputed from the credential.
//
// Authenticated == false implies Role == RoleNone and Approved == false.
type Session struct {
	Authenticated bool `json:"authenticated"`
	Role          Role `json:"role"`
	Approved      bool `json:"approved"`
}

// Anonymous is the session of a profile with no usable credential.
func Anonymous() Session {
	return Session{}
}

// NewSession builds an authenticated session.
func NewSession(role Role, approved bool) Session {
	return Session{Authenticated: true, Role: role, Approved: approved}
}

// IsAnonymous reports whether the session carries no identity.
func (s Session) IsAnonymous() bool {
	return !s.Authenticated
}

// Holds reports whether the session may use views reserved for role.
func (s Session) Holds(role Role) bool {
	return s.Authenticated && s.Approved && role != RoleNone && s.Role == role
}
