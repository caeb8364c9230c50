package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

// Claims is the fixed-shape view of the credential claims the gateway reads.
type Claims struct {
	Subject   string
	Roles     []string
	Role      domain.Role // Roles[0]; later entries are ignored
	Approved  bool
	ExpiresAt time.Time
}

// DecodeResult is either Valid or Invalid.
type DecodeResult interface {
	isDecodeResult()
}

// Valid carries the claims of a structurally sound credential. Expiry is not
// checked at decode time.
type Valid struct {
	Claims Claims
}

// Invalid reports a credential that cannot be read. Reason wraps
// domain.ErrMalformedCredential.
type Invalid struct {
	Reason error
}

func (Valid) isDecodeResult()   {}
func (Invalid) isDecodeResult() {}

type tokenClaims struct {
	Roles    []string `json:"roles"`
	Approved bool     `json:"approved"`
	jwt.RegisteredClaims
}

// The signature is the upstream API's business; only the payload is read.
var unverifiedParser = jwt.NewParser()

// Decode reads the embedded claims of a credential without verifying it.
func Decode(credential string) DecodeResult {
	var tc tokenClaims
	if _, _, err := unverifiedParser.ParseUnverified(credential, &tc); err != nil {
		return Invalid{Reason: fmt.Errorf("%w: %v", domain.ErrMalformedCredential, err)}
	}
	if tc.ExpiresAt == nil {
		return Invalid{Reason: fmt.Errorf("%w: missing exp claim", domain.ErrMalformedCredential)}
	}
	if len(tc.Roles) == 0 {
		return Invalid{Reason: fmt.Errorf("%w: missing roles claim", domain.ErrMalformedCredential)}
	}
	role, ok := domain.ParseRole(tc.Roles[0])
	if !ok {
		return Invalid{Reason: fmt.Errorf("%w: unknown role %q", domain.ErrMalformedCredential, tc.Roles[0])}
	}

	return Valid{Claims: Claims{
		Subject:   tc.Subject,
		Roles:     tc.Roles,
		Role:      role,
		Approved:  tc.Approved,
		ExpiresAt: tc.ExpiresAt.Time,
	}}
}

// Outcome labels how a derivation resolved.
type Outcome string

const (
	OutcomeAbsent    Outcome = "absent"
	OutcomeValid     Outcome = "valid"
	OutcomeMalformed Outcome = "malformed"
	OutcomeExpired   Outcome = "expired"
)

// SessionDeriver turns the stored credential into a Session.
type SessionDeriver struct {
	now func() time.Time
	log zerolog.Logger
}

func NewSessionDeriver(log zerolog.Logger) *SessionDeriver {
	return &SessionDeriver{now: time.Now, log: log}
}

// WithClock returns a copy of the deriver reading time from now.
func (d *SessionDeriver) WithClock(now func() time.Time) *SessionDeriver {
	cp := *d
	cp.now = now
	return &cp
}

// Derive reads the store and returns the session it implies. Unreadable and
// expired credentials are cleared from the store and yield the anonymous
// session. Derive never fails.
func (d *SessionDeriver) Derive(ctx context.Context, store ports.CredentialStore) (domain.Session, Outcome) {
	credential, ok := store.Get(ctx)
	if !ok {
		return domain.Anonymous(), OutcomeAbsent
	}

	switch res := Decode(credential).(type) {
	case Valid:
		if !d.now().Before(res.Claims.ExpiresAt) {
			store.Clear(ctx)
			d.log.Info().
				Str("subject", res.Claims.Subject).
				Time("expired_at", res.Claims.ExpiresAt).
				Msg("credential expired, cleared")
			return domain.Anonymous(), OutcomeExpired
		}
		return domain.NewSession(res.Claims.Role, res.Claims.Approved), OutcomeValid
	case Invalid:
		store.Clear(ctx)
		d.log.Warn().Err(res.Reason).Msg("credential unreadable, cleared")
		return domain.Anonymous(), OutcomeMalformed
	default:
		store.Clear(ctx)
		return domain.Anonymous(), OutcomeMalformed
	}
}
