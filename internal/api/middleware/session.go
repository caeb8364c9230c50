package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/api/metrics"
	"github.com/kavaavi/career-portal/internal/core/access"
	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
	"github.com/kavaavi/career-portal/internal/core/service"
)

const (
	keyCell    = "session_cell"
	keySession = "session"
)

// SessionConfig wires the Session middleware.
type SessionConfig struct {
	Backend  ports.CredentialBackend
	Deriver  *service.SessionDeriver
	Recorder ports.TransitionRecorder
	Log      zerolog.Logger
}

// NewCell builds the session cell for the profile and context resolved on c.
func (cfg SessionConfig) NewCell(c echo.Context) *service.SessionCell {
	profileID, contextID := ProfileID(c), ContextID(c)
	return service.NewSessionCell(cfg.Backend.Store(profileID, contextID), cfg.Deriver, service.CellOptions{
		ProfileID: profileID,
		ContextID: contextID,
		Recorder:  cfg.Recorder,
		Log:       cfg.Log,
	})
}

// Session derives the caller's session from the profile's credential before
// the handler runs. Must be installed after Profile.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cell := cfg.NewCell(c)
			session, outcome := cell.Refresh(c.Request().Context(), service.TriggerMount)
			metrics.SessionDerivationsTotal.WithLabelValues(string(service.TriggerMount), string(outcome)).Inc()

			c.Set(keyCell, cell)
			c.Set(keySession, session)
			return next(c)
		}
	}
}

// Cell returns the cell installed by Session, or nil.
func Cell(c echo.Context) *service.SessionCell {
	cell, _ := c.Get(keyCell).(*service.SessionCell)
	return cell
}

// SessionFrom returns the session derived for this request. Requests that did
// not pass through Session are anonymous.
func SessionFrom(c echo.Context) domain.Session {
	if s, ok := c.Get(keySession).(domain.Session); ok {
		return s
	}
	return domain.Anonymous()
}

// Authorize gates the route by the rules of a. Denied requests are redirected
// to the login page before the handler starts.
func Authorize(a *access.Authorizer, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			d := a.Authorize(path, SessionFrom(c))
			route := d.Pattern
			if route == "" {
				route = "unmatched"
			}
			if !d.Allowed {
				metrics.RouteDecisionsTotal.WithLabelValues(route, "redirect").Inc()
				log.Debug().
					Str("path", path).
					Str("profile_id", ProfileID(c)).
					Str("redirect", d.Redirect).
					Msg("route denied")
				return c.Redirect(http.StatusFound, d.Redirect)
			}

			metrics.RouteDecisionsTotal.WithLabelValues(route, "allow").Inc()
			return next(c)
		}
	}
}
