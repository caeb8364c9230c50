package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kavaavi/career-portal/internal/api/metrics"
	"github.com/kavaavi/career-portal/internal/core/access"
	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
	"github.com/kavaavi/career-portal/internal/core/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type registerRequest struct {
	FullName string `json:"fullName" form:"fullName" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
	Phone    string `json:"phone" form:"phone"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" form:"token" validate:"required"`
	NewPassword string `json:"newPassword" form:"newPassword" validate:"required,min=6"`
}

// sessionResponse is the session a context holds after an auth action, plus
// where the client should navigate next.
type sessionResponse struct {
	Session  domain.Session `json:"session"`
	Redirect string         `json:"redirect"`
}

type forgotPasswordResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

func newSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{Session: s, Redirect: access.DashboardPath(s)}
}

// Login authenticates against the portal API and stores the issued credential
// for the caller's profile.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	cell, err := sessionCell(c)
	if err != nil {
		return err
	}

	session, err := h.auth.Login(c.Request().Context(), cell, req.Email, req.Password)
	countAdoption(err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// RegisterApplicant creates an applicant account and signs it in.
//
// @Summary      Register an applicant
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Applicant details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/register/applicant [post]
func (h *AuthHandler) RegisterApplicant(c echo.Context) error {
	return h.register(c, domain.RoleApplicant)
}

// RegisterHR creates an HR account. The resulting session is unapproved until
// a super-admin approves the account, so it reaches no HR view yet.
//
// @Summary      Register an HR user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "HR user details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/register/hr [post]
func (h *AuthHandler) RegisterHR(c echo.Context) error {
	return h.register(c, domain.RoleHR)
}

func (h *AuthHandler) register(c echo.Context, role domain.Role) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	cell, err := sessionCell(c)
	if err != nil {
		return err
	}

	session, err := h.auth.Register(c.Request().Context(), cell, role, ports.RegistrationInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	countAdoption(err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newSessionResponse(session))
}

// Logout clears the profile's credential. Every other context of the profile
// observes the change and drops to anonymous as well. Form posts from the
// navbar are redirected home; JSON clients get the session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Success      303
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	cell, err := sessionCell(c)
	if err != nil {
		return err
	}

	session := h.auth.Logout(c.Request().Context(), cell)
	if !wantsJSON(c.Request()) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, sessionResponse{Session: session, Redirect: "/"})
}

// ForgotPassword requests a password reset token.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  forgotPasswordResponse
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	res, err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, forgotPasswordResponse{Message: res.Message, Token: res.Token})
}

// ResetPassword sets a new password with a reset token.
//
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// countAdoption records the derivation of a credential the upstream API just
// issued. Failures before a credential existed are not derivations.
func countAdoption(err error) {
	outcome := service.OutcomeValid
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrExpiredCredential):
		outcome = service.OutcomeExpired
	case errors.Is(err, domain.ErrMalformedCredential):
		outcome = service.OutcomeMalformed
	default:
		return
	}
	metrics.SessionDerivationsTotal.WithLabelValues(string(service.TriggerLogin), string(outcome)).Inc()
}
