package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost:8081", 0); err == nil {
		t.Fatalf("expected error for a url without scheme")
	}
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["email"] != "a@example.com" || body["password"] != "pw" {
			t.Fatalf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-token"})
	})

	token, err := c.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "jwt-token" {
		t.Fatalf("unexpected token: %s", token)
	}
}

func TestClient_RegisterHR(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register/hr" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["fullName"] != "Dana" || body["phone"] != "555" {
			t.Fatalf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "hr-token"})
	})

	token, err := c.RegisterHR(context.Background(), ports.RegistrationInput{
		FullName: "Dana", Email: "dana@example.com", Password: "secret1", Phone: "555",
	})
	if err != nil || token != "hr-token" {
		t.Fatalf("RegisterHR = %q, %v", token, err)
	}
}

func TestClient_PasswordRecoveryUsesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/auth/forgot-password":
			if q.Get("email") != "a@example.com" {
				t.Fatalf("unexpected query: %s", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "sent", "token": "reset-1"})
		case "/api/auth/reset-password":
			if q.Get("token") != "reset-1" || q.Get("newPassword") != "newsecret" {
				t.Fatalf("unexpected query: %s", r.URL.RawQuery)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	res, err := c.ForgotPassword(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if res.Message != "sent" || res.Token != "reset-1" {
		t.Fatalf("unexpected reset: %+v", res)
	}
	if err := c.ResetPassword(ctx, res.Token, "newsecret"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad credentials"}`, domain.ErrInvalidCredentials},
		{"not approved", http.StatusForbidden, `{"error":"account pending approval"}`, domain.ErrNotApproved},
		{"conflict", http.StatusConflict, ``, domain.ErrUserExists},
		{"already exists as 400", http.StatusBadRequest, `Email already exists`, domain.ErrUserExists},
		{"other 400", http.StatusBadRequest, `{"error":"phone is invalid"}`, domain.ErrUpstreamRejected},
		{"server error", http.StatusInternalServerError, `boom`, domain.ErrUpstreamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Login(context.Background(), "a@example.com", "pw")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_RejectedMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"phone is invalid"}`))
	})

	_, err := c.RegisterApplicant(context.Background(), ports.RegistrationInput{FullName: "A", Email: "a@example.com", Password: "secret1"})
	msg, ok := Message(err)
	if !ok || msg != "phone is invalid" {
		t.Fatalf("Message = %q, %v", msg, ok)
	}
}

func TestClient_EmptyTokenIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := c.Login(context.Background(), "a@example.com", "pw"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Login(context.Background(), "a@example.com", "pw"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
