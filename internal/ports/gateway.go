package ports

import (
	"context"
	"time"

	"github.com/bnema/crew/internal/domain"
)

type Request struct {
	Role   domain.Role
	Method string
	Path   string
	Body   any
	// Public requests carry no bearer token and never force a logout.
	Public bool
}

type Gateway interface {
	Call(ctx context.Context, req Request) domain.Outcome
}

// SessionSource gives the gateway read access to the current credential of a
// role and the single entry point for forced logout.
type SessionSource interface {
	Credential(ctx context.Context, role domain.Role) *domain.Credential
	ForceLogout(ctx context.Context, role domain.Role, rejected domain.Credential)
}

type OutcomeRecorder interface {
	RecordOutcome(role domain.Role, kind domain.OutcomeKind, elapsed time.Duration)
}
