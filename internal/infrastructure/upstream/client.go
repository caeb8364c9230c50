// Package upstream talks to the career portal REST API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Client implements ports.PortalAPI over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient builds a client rooted at baseURL (scheme and host of the API).
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base url %q: scheme and host required", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

// BaseURL returns the API root, for forwarding.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

func (r tokenResponse) token(path string) (string, error) {
	if r.Token == "" {
		return "", fmt.Errorf("%s: %w: response carries no token", path, domain.ErrUpstreamUnavailable)
	}
	return r.Token, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.token("/api/auth/login")
}

func (c *Client) RegisterApplicant(ctx context.Context, in ports.RegistrationInput) (string, error) {
	return c.register(ctx, "/api/auth/register/applicant", in)
}

func (c *Client) RegisterHR(ctx context.Context, in ports.RegistrationInput) (string, error) {
	return c.register(ctx, "/api/auth/register/hr", in)
}

func (c *Client) register(ctx context.Context, path string, in ports.RegistrationInput) (string, error) {
	body := registerRequest{FullName: in.FullName, Email: in.Email, Password: in.Password, Phone: in.Phone}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return "", err
	}
	return out.token(path)
}

// ForgotPassword uses the query-parameter form the API expects.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*ports.PasswordReset, error) {
	q := url.Values{"email": {email}}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", q, nil, &out); err != nil {
		return nil, err
	}
	return &ports.PasswordReset{Message: out.Message, Token: out.Token}, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	q := url.Values{"token": {token}, "newPassword": {newPassword}}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", q, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w: %v", path, domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// statusError maps an upstream failure status to a domain error.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = domain.ErrInvalidCredentials
	case resp.StatusCode == http.StatusForbidden:
		sentinel = domain.ErrNotApproved
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "already exists"):
		sentinel = domain.ErrUserExists
	case resp.StatusCode >= 500:
		sentinel = domain.ErrUpstreamUnavailable
	default:
		sentinel = domain.ErrUpstreamRejected
	}

	if msg == "" {
		return fmt.Errorf("upstream status %d: %w", resp.StatusCode, sentinel)
	}
	return &RejectedError{Status: resp.StatusCode, Message: msg, err: sentinel}
}

// RejectedError carries the upstream message next to the mapped sentinel.
type RejectedError struct {
	Status  int
	Message string
	err     error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return e.err
}

// Message returns the upstream's own message when err carries one.
func Message(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Message, true
	}
	return "", false
}
