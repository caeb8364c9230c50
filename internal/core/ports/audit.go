package ports

import (
	"context"

	"github.com/kavaavi/career-portal/internal/core/domain"
)

// AuditRepository persists session transitions.
type AuditRepository interface {
	InsertTransition(ctx context.Context, t *domain.SessionTransition) error
}

// TransitionRecorder accepts transitions without blocking the caller.
type TransitionRecorder interface {
	Record(t domain.SessionTransition)
}
