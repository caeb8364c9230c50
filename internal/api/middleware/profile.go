package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/blake2b"
)

// HeaderContext carries the id a browser tab generates for itself.
const HeaderContext = "X-Portal-Context"

// QueryContext is the fallback for clients that cannot set headers (EventSource).
const QueryContext = "context"

const (
	keyProfileID = "profile_id"
	keyContextID = "context_id"

	profileMaxAge = 365 * 24 * time.Hour
)

// ProfileConfig configures the profile cookie.
type ProfileConfig struct {
	CookieName string
	Secret     string
	Secure     bool
}

// ProfileSigner signs profile ids with a keyed BLAKE2b MAC so a client cannot
// pick another profile's credential slot.
type ProfileSigner struct {
	key [32]byte
}

func NewProfileSigner(secret string) *ProfileSigner {
	return &ProfileSigner{key: blake2b.Sum256([]byte(secret))}
}

// Sign returns "<id>.<mac>".
func (s *ProfileSigner) Sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(s.mac(id))
}

// Verify returns the id of a signed value.
func (s *ProfileSigner) Verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if subtle.ConstantTimeCompare(got, s.mac(id)) != 1 {
		return "", false
	}
	return id, true
}

func (s *ProfileSigner) mac(id string) []byte {
	h, err := blake2b.New256(s.key[:])
	if err != nil {
		// only returned for keys longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(id))
	return h.Sum(nil)
}

// Profile resolves the caller's profile from the signed cookie, issuing a new
// one when it is missing or tampered with, and reads the context id of the
// tab making the request.
func Profile(cfg ProfileConfig) echo.MiddlewareFunc {
	signer := NewProfileSigner(cfg.Secret)
	name := cfg.CookieName
	if name == "" {
		name = "portal_profile"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var (
				id string
				ok bool
			)
			if ck, err := c.Cookie(name); err == nil {
				id, ok = signer.Verify(ck.Value)
			}
			if !ok {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     name,
					Value:    signer.Sign(id),
					Path:     "/",
					MaxAge:   int(profileMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(keyProfileID, id)
			c.Set(keyContextID, contextID(c))
			return next(c)
		}
	}
}

// contextID accepts only uuid-shaped ids. Requests without one act as a
// context of their own.
func contextID(c echo.Context) string {
	raw := c.Request().Header.Get(HeaderContext)
	if raw == "" {
		raw = c.QueryParam(QueryContext)
	}
	if raw == "" {
		return ""
	}
	if _, err := uuid.Parse(raw); err != nil {
		return ""
	}
	return raw
}

// ProfileID returns the profile resolved by Profile.
func ProfileID(c echo.Context) string {
	id, _ := c.Get(keyProfileID).(string)
	return id
}

// ContextID returns the tab id resolved by Profile, or "".
func ContextID(c echo.Context) string {
	id, _ := c.Get(keyContextID).(string)
	return id
}

// SetContextID overrides the context id, used when the server assigns one.
func SetContextID(c echo.Context, id string) {
	c.Set(keyContextID, id)
}
