package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/infrastructure/upstream"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and renders {"error": "<message>"}. Unexpected errors are
// logged and reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrNotApproved):
		return http.StatusForbidden, "account is awaiting approval"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, domain.ErrExpiredCredential):
		return http.StatusUnauthorized, "credential expired"
	case errors.Is(err, domain.ErrMalformedCredential):
		return http.StatusBadGateway, "upstream issued an unusable credential"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		log.Warn().Err(err).Str("path", c.Path()).Msg("upstream unavailable")
		return http.StatusBadGateway, "portal API unavailable"
	case errors.Is(err, domain.ErrUpstreamRejected):
		if msg, ok := upstream.Message(err); ok {
			return http.StatusBadRequest, msg
		}
		return http.StatusBadRequest, "request rejected"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
