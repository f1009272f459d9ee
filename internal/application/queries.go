package application

import (
	"context"
	"time"

	"github.com/bnema/crew/internal/domain"
)

type SessionStatus struct {
	Role      domain.Role
	State     domain.SessionState
	ExpiresAt time.Time
	LoginPath string
}

func (s *Sessions) Statuses(ctx context.Context) []SessionStatus {
	statuses := make([]SessionStatus, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		statuses = append(statuses, s.status(ctx, s.byRole[role]))
	}
	return statuses
}

// Status reports one role's session.
func (s *Sessions) Status(ctx context.Context, role domain.Role) (SessionStatus, error) {
	session, err := s.Get(role)
	if err != nil {
		return SessionStatus{}, err
	}
	return s.status(ctx, session), nil
}

func (s *Sessions) status(ctx context.Context, session *Session) SessionStatus {
	role := session.Role()
	state := session.Active(ctx)
	status := SessionStatus{Role: role, State: state, LoginPath: role.LoginPath()}
	if state.Credential != nil {
		if expiresAt, ok := s.tokens.Expiry(state.Credential); ok {
			status.ExpiresAt = expiresAt
		}
	}
	return status
}
