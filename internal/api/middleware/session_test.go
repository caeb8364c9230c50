package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/access"
	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/service"
	"github.com/kavaavi/career-portal/internal/infrastructure/db/memory"
)

const testSecret = "secret"

func credentialFor(t *testing.T, role domain.Role, approved bool) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "user@example.com",
		"roles":    []string{role.Claim()},
		"approved": approved,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("upstream-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

type gateFixture struct {
	e       *echo.Echo
	backend *memory.CredentialBackend
	cells   SessionConfig
}

func newGateFixture() *gateFixture {
	f := &gateFixture{e: echo.New(), backend: memory.NewCredentialBackend()}
	f.cells = SessionConfig{
		Backend: f.backend,
		Deriver: service.NewSessionDeriver(zerolog.Nop()),
		Log:     zerolog.Nop(),
	}

	ok := func(c echo.Context) error { return c.JSON(http.StatusOK, SessionFrom(c)) }
	g := f.e.Group("",
		Profile(ProfileConfig{Secret: testSecret}),
		Session(f.cells),
		Authorize(access.NewAuthorizer(access.PortalRules()), zerolog.Nop()),
	)
	g.GET("/", ok)
	g.GET("/login", ok)
	g.GET("/hr", ok)
	g.GET("/applicant", ok)
	g.GET("/jobs/:id/apply", ok)
	return f
}

// signIn stores credential for a fresh profile and returns its cookie.
func (f *gateFixture) signIn(t *testing.T, credential string) *http.Cookie {
	t.Helper()
	profileID := uuid.NewString()
	if credential != "" {
		f.backend.Store(profileID, "").Set(context.Background(), credential)
	}
	return &http.Cookie{Name: "portal_profile", Value: NewProfileSigner(testSecret).Sign(profileID)}
}

func (f *gateFixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestAuthorize_Decisions(t *testing.T) {
	f := newGateFixture()

	cases := []struct {
		name       string
		credential string
		path       string
		allowed    bool
	}{
		{"anonymous on public view", "", "/", true},
		{"anonymous on login", "", "/login", true},
		{"anonymous on hr view", "", "/hr", false},
		{"approved hr on hr view", credentialFor(t, domain.RoleHR, true), "/hr", true},
		{"unapproved hr on hr view", credentialFor(t, domain.RoleHR, false), "/hr", false},
		{"applicant on hr view", credentialFor(t, domain.RoleApplicant, false), "/hr", false},
		{"applicant applies", credentialFor(t, domain.RoleApplicant, false), "/jobs/7/apply", true},
		{"hr cannot apply", credentialFor(t, domain.RoleHR, true), "/jobs/7/apply", false},
		{"unknown path", credentialFor(t, domain.RoleSuperAdmin, true), "/nowhere", false},
		{"garbage credential", "not-a-token", "/applicant", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.get(tc.path, f.signIn(t, tc.credential))
			if tc.allowed {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", rec.Code)
				}
				return
			}
			if rec.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != access.LoginPath {
				t.Fatalf("expected redirect to %s, got %q", access.LoginPath, loc)
			}
		})
	}
}

func TestSession_ClearsMalformedCredential(t *testing.T) {
	f := newGateFixture()
	profileID := uuid.NewString()
	f.backend.Store(profileID, "").Set(context.Background(), "not-a-token")
	cookie := &http.Cookie{Name: "portal_profile", Value: NewProfileSigner(testSecret).Sign(profileID)}

	f.get("/", cookie)

	if _, ok := f.backend.Store(profileID, "").Get(context.Background()); ok {
		t.Fatalf("malformed credential should be cleared on mount")
	}
}

func TestSessionFrom_DefaultsToAnonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if s := SessionFrom(c); s != domain.Anonymous() {
		t.Fatalf("expected anonymous session, got %+v", s)
	}
	if Cell(c) != nil {
		t.Fatalf("expected no cell")
	}
}
