package ports

import (
	"context"
	"time"
)

// CredentialChange notifies a context that another context of the same
// profile wrote or cleared the credential. It carries no credential value;
// receivers re-read the store.
type CredentialChange struct {
	ProfileID string
	Origin    string // context that made the change
	Present   bool
	At        time.Time
}

// CredentialStore is one browsing context's view of its profile's single
// credential slot. Absence is a normal state; implementations never surface
// errors to callers and read backend faults as absence.
type CredentialStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, credential string)
	Clear(ctx context.Context)

	// Subscribe registers fn for changes made by other contexts of the same
	// profile. Delivery is asynchronous. The subscription ends when the
	// returned function is called or ctx is done.
	Subscribe(ctx context.Context, fn func(CredentialChange)) (unsubscribe func())
}

// CredentialBackend hands out per-context stores over shared profile slots.
type CredentialBackend interface {
	Store(profileID, contextID string) CredentialStore
}
