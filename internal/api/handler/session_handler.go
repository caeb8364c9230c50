package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/api/metrics"
	"github.com/kavaavi/career-portal/internal/api/middleware"
	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/service"
)

const defaultHeartbeat = 15 * time.Second

// SessionHandler exposes the read-only session of a context and keeps it
// current: on refocus through Refresh, on external change through Events.
type SessionHandler struct {
	cells     middleware.SessionConfig
	heartbeat time.Duration
	log       zerolog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

func NewSessionHandler(cells middleware.SessionConfig, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		cells:     cells,
		heartbeat: defaultHeartbeat,
		log:       log,
		closing:   make(chan struct{}),
	}
}

// CloseStreams ends every open event stream. http.Server.Shutdown does not
// cancel in-flight requests, so it is registered as a shutdown hook.
func (h *SessionHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Get returns the session derived for this request.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Param        X-Portal-Context  header    string  false  "Tab id"
// @Success      200               {object}  sessionResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, newSessionResponse(middleware.SessionFrom(c)))
}

// Refresh re-derives the session when a tab regains focus. It catches
// expiry that happened while the tab was in the background.
//
// @Summary      Re-derive the session
// @Tags         session
// @Produce      json
// @Param        X-Portal-Context  header    string  false  "Tab id"
// @Success      200               {object}  sessionResponse
// @Router       /session/refresh [post]
func (h *SessionHandler) Refresh(c echo.Context) error {
	cell, err := sessionCell(c)
	if err != nil {
		return err
	}

	session, outcome := cell.Refresh(c.Request().Context(), service.TriggerFocus)
	metrics.SessionDerivationsTotal.WithLabelValues(string(service.TriggerFocus), string(outcome)).Inc()
	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// Events streams the context's session as server-sent events. The first
// "context" event carries the tab id, assigned here when the client sent
// none; each "session" event carries a fully re-derived session. Changes
// made by this same context are not echoed back.
//
// @Summary      Session change stream
// @Tags         session
// @Produce      text/event-stream
// @Param        context  query  string  false  "Tab id"
// @Success      200
// @Router       /session/events [get]
func (h *SessionHandler) Events(c echo.Context) error {
	if middleware.ContextID(c) == "" {
		middleware.SetContextID(c, uuid.NewString())
	}
	contextID := middleware.ContextID(c)

	ctx := c.Request().Context()
	cell := h.cells.NewCell(c)
	session, outcome := cell.Refresh(ctx, service.TriggerMount)
	metrics.SessionDerivationsTotal.WithLabelValues(string(service.TriggerMount), string(outcome)).Inc()

	// Holds at most the newest session; an unread one is superseded.
	updates := make(chan domain.Session, 1)
	stop := cell.Watch(ctx, func(s domain.Session, outcome service.Outcome) {
		metrics.SessionDerivationsTotal.WithLabelValues(string(service.TriggerStorage), string(outcome)).Inc()
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer stop()

	metrics.SessionStreamsActive.Inc()
	defer metrics.SessionStreamsActive.Dec()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, "context", map[string]string{"context": contextID}); err != nil {
		return nil
	}
	if err := writeEvent(res, "session", newSessionResponse(session)); err != nil {
		return nil
	}

	h.log.Debug().
		Str("profile_id", middleware.ProfileID(c)).
		Str("context_id", contextID).
		Msg("session stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("context_id", contextID).Msg("session stream closed")
			return nil
		case <-h.closing:
			h.log.Debug().Str("context_id", contextID).Msg("session stream closed for shutdown")
			return nil
		case s := <-updates:
			if err := writeEvent(res, "session", newSessionResponse(s)); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
