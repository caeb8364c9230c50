package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

// AuthService runs the login, registration and recovery flows against the
// upstream API and moves the caller's session cell accordingly.
type AuthService struct {
	api ports.PortalAPI
	log zerolog.Logger
}

func NewAuthService(api ports.PortalAPI, log zerolog.Logger) *AuthService {
	return &AuthService{api: api, log: log}
}

// Login exchanges email and password for a credential and stores it.
func (s *AuthService) Login(ctx context.Context, cell *SessionCell, email, password string) (domain.Session, error) {
	if email == "" || password == "" {
		return domain.Anonymous(), domain.ErrInvalidCredentials
	}

	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("login: %w", err)
	}
	return s.adopt(ctx, cell, token)
}

// Register creates an account of the given role and signs it in. HR accounts
// come back unapproved until a super-admin approves them.
func (s *AuthService) Register(ctx context.Context, cell *SessionCell, role domain.Role, in ports.RegistrationInput) (domain.Session, error) {
	if in.Email == "" || in.Password == "" || in.FullName == "" {
		return domain.Anonymous(), domain.ErrInvalidCredentials
	}

	var (
		token string
		err   error
	)
	switch role {
	case domain.RoleApplicant:
		token, err = s.api.RegisterApplicant(ctx, in)
	case domain.RoleHR:
		token, err = s.api.RegisterHR(ctx, in)
	default:
		return domain.Anonymous(), fmt.Errorf("register %s: %w", role, domain.ErrInvalidCredentials)
	}
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("register %s: %w", role, err)
	}
	return s.adopt(ctx, cell, token)
}

// Logout discards the credential.
func (s *AuthService) Logout(ctx context.Context, cell *SessionCell) domain.Session {
	return cell.Logout(ctx)
}

// ForgotPassword asks upstream for a reset token.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ports.PasswordReset, error) {
	if email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	res, err := s.api.ForgotPassword(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("forgot password: %w", err)
	}
	return res, nil
}

// ResetPassword sets a new password using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return domain.ErrInvalidCredentials
	}
	if err := s.api.ResetPassword(ctx, token, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// adopt stores a freshly issued credential. A credential that does not derive
// to a session was cleared by the deriver and is reported as malformed.
func (s *AuthService) adopt(ctx context.Context, cell *SessionCell, token string) (domain.Session, error) {
	session, outcome := cell.Login(ctx, token)
	switch outcome {
	case OutcomeValid:
		return session, nil
	case OutcomeExpired:
		return session, domain.ErrExpiredCredential
	default:
		s.log.Error().Str("outcome", string(outcome)).Msg("upstream issued an unusable credential")
		return session, domain.ErrMalformedCredential
	}
}
