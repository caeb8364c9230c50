package domain

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNotApproved         = errors.New("account not approved")
	ErrUserExists          = errors.New("user already exists")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedCredential and ErrExpiredCredential never leave the session
	// layer as failures; they label why a credential was discarded.
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpiredCredential   = errors.New("expired credential")
)
