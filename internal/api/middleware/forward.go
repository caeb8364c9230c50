package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/api/metrics"
	"github.com/kavaavi/career-portal/internal/core/service"
)

type cellCtxKey struct{}

// authPrefix holds the upstream's own sign-in endpoints. Their 401s judge the
// submitted password, not the stored credential.
const authPrefix = "/api/auth/"

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, authPrefix)
}

// ForwardCredential replaces any client supplied Authorization header with the
// profile's stored credential so the proxied API call runs as the session.
// Anonymous sessions and calls to /api/auth/ are forwarded without one. Must
// run after Session.
func ForwardCredential() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			req.Header.Del(echo.HeaderAuthorization)

			cell := Cell(c)
			if cell == nil || isAuthPath(req.URL.Path) {
				return next(c)
			}
			if credential, ok := cell.Credential(req.Context()); ok {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+credential)
			}
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), cellCtxKey{}, cell)))
			return next(c)
		}
	}
}

// ClearOnUnauthorized is a proxy ModifyResponse hook: a 401 from the API means
// the stored credential is no longer accepted, so it is cleared for every
// context of the profile.
func ClearOnUnauthorized(log zerolog.Logger) func(*http.Response) error {
	return func(res *http.Response) error {
		if res.StatusCode != http.StatusUnauthorized || res.Request == nil || isAuthPath(res.Request.URL.Path) {
			return nil
		}
		cell, ok := res.Request.Context().Value(cellCtxKey{}).(*service.SessionCell)
		if !ok {
			return nil
		}
		if !cell.Current().Authenticated {
			return nil
		}

		metrics.UpstreamUnauthorizedTotal.Inc()
		log.Info().Str("path", res.Request.URL.Path).Msg("upstream rejected credential, clearing")
		cell.Discard(context.WithoutCancel(res.Request.Context()), service.TriggerRejected)
		return nil
	}
}
