package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/unrolled/secure"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/kavaavi/career-portal/docs"
	"github.com/kavaavi/career-portal/internal/api/handler"
	"github.com/kavaavi/career-portal/internal/api/middleware"
	"github.com/kavaavi/career-portal/internal/api/view"
	"github.com/kavaavi/career-portal/internal/core/access"
	"github.com/kavaavi/career-portal/internal/core/ports"
	"github.com/kavaavi/career-portal/internal/core/service"
)

// Options carries the HTTP-facing settings of the gateway.
type Options struct {
	Development    bool
	ProfileCookie  string
	ProfileSecret  string
	CookieSecure   bool
	LoginRateLimit int // attempts per IP per minute; 0 disables the limit
}

// Dependencies are the collaborators NewRouter wires into handlers.
type Dependencies struct {
	API      ports.PortalAPI
	APIURL   *url.URL // forwarding target for /api/*
	Backend  ports.CredentialBackend
	Recorder ports.TransitionRecorder // optional

	// Optional; reported by /health/ready when set.
	Mongo *mongo.Database
	Redis *redis.Client

	// Registry receives the HTTP metrics. A fresh one is created when nil.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options, deps Dependencies) (*echo.Echo, error) {
	if deps.API == nil || deps.Backend == nil || deps.APIURL == nil {
		return nil, fmt.Errorf("router: portal API, forwarding url and credential backend are required")
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echo.WrapMiddleware(secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         opts.Development,
	}).Handler))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "portal",
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || p == "/session/events"
		},
	}))

	// --- Dependencies ---
	log := deps.Log
	authorizer := access.NewAuthorizer(access.PortalRules())
	cells := middleware.SessionConfig{
		Backend:  deps.Backend,
		Deriver:  service.NewSessionDeriver(log.With().Str("component", "session").Logger()),
		Recorder: deps.Recorder,
		Log:      log.With().Str("component", "session").Logger(),
	}
	authService := service.NewAuthService(deps.API, log.With().Str("component", "auth").Logger())

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(cells, log.With().Str("component", "session_stream").Logger())
	e.Server.RegisterOnShutdown(sessionHandler.CloseStreams)
	pageHandler := handler.NewPageHandler(authorizer)
	healthHandler := handler.NewHealthHandler(deps.Mongo, deps.Redis)

	profile := middleware.Profile(middleware.ProfileConfig{
		CookieName: opts.ProfileCookie,
		Secret:     opts.ProfileSecret,
		Secure:     opts.CookieSecure,
	})
	session := middleware.Session(cells)

	// --- Health probes and operational endpoints (no profile) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth actions ---
	auth := e.Group("/auth", profile, session)
	var login []echo.MiddlewareFunc
	if opts.LoginRateLimit > 0 {
		login = append(login, echo.WrapMiddleware(httprate.Limit(opts.LoginRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many login attempts"}`))
			}),
		)))
	}
	auth.POST("/login", authHandler.Login, login...)
	auth.POST("/register/applicant", authHandler.RegisterApplicant)
	auth.POST("/register/hr", authHandler.RegisterHR)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// --- Session ---
	e.GET("/session", sessionHandler.Get, profile, session)
	e.POST("/session/refresh", sessionHandler.Refresh, profile, session)
	e.GET("/session/events", sessionHandler.Events, profile)

	// --- API forwarding ---
	e.Group("/api", profile, session, middleware.ForwardCredential(), echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Balancer:       echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: deps.APIURL}}),
		ModifyResponse: middleware.ClearOnUnauthorized(log.With().Str("component", "forward").Logger()),
	}))

	// --- Portal views ---
	// The group's catch-all runs the gate too, so paths without a view are
	// redirected to login instead of answering 404.
	pages := e.Group("", profile, session, middleware.Authorize(authorizer, log))
	for _, p := range handler.PortalPages() {
		pages.GET(p.Path, pageHandler.Show(p))
	}

	return e, nil
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health")
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
