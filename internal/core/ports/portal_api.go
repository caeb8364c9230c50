package ports

import "context"

// RegistrationInput carries the fields the upstream registration endpoints expect.
type RegistrationInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
}

// PasswordReset is the upstream answer to a forgot-password request.
type PasswordReset struct {
	Message string
	Token   string
}

// PortalAPI is the subset of the external REST API the gateway calls on its
// own behalf. Everything else is forwarded verbatim.
type PortalAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	RegisterApplicant(ctx context.Context, in RegistrationInput) (string, error)
	RegisterHR(ctx context.Context, in RegistrationInput) (string, error)
	ForgotPassword(ctx context.Context, email string) (*PasswordReset, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}
