package application

import (
	"context"
	"log/slog"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

// Sessions holds the three role sessions of one client runtime. It is the
// gateway's source of credentials and its route for forced logouts.
type Sessions struct {
	byRole map[domain.Role]*Session
	tokens ports.TokenStore
}

var _ ports.SessionSource = (*Sessions)(nil)

func NewSessions(tokens ports.TokenStore, logger *slog.Logger) *Sessions {
	byRole := make(map[domain.Role]*Session, len(domain.Roles))
	for _, role := range domain.Roles {
		byRole[role] = NewSession(role, tokens, logger)
	}
	return &Sessions{byRole: byRole, tokens: tokens}
}

func (s *Sessions) Bind(gateway ports.Gateway) {
	for _, session := range s.byRole {
		session.Bind(gateway)
	}
}

func (s *Sessions) Get(role domain.Role) (*Session, error) {
	session, ok := s.byRole[role]
	if !ok {
		return nil, domain.ErrUnknownRole
	}
	return session, nil
}

func (s *Sessions) RestoreAll(ctx context.Context) {
	for _, role := range domain.Roles {
		s.byRole[role].RestoreFromStorage(ctx)
	}
}

func (s *Sessions) LogoutAll(ctx context.Context) {
	for _, role := range domain.Roles {
		s.byRole[role].Logout(ctx)
	}
}

// Credential returns the role's credential while it is still valid locally.
// An expired credential ends the session and yields nil.
func (s *Sessions) Credential(ctx context.Context, role domain.Role) *domain.Credential {
	session, ok := s.byRole[role]
	if !ok {
		return nil
	}
	state := session.Active(ctx)
	if !state.IsAuthenticated {
		return nil
	}
	return state.Credential
}

func (s *Sessions) ForceLogout(ctx context.Context, role domain.Role, rejected domain.Credential) {
	if session, ok := s.byRole[role]; ok {
		session.ForceLogout(ctx, rejected)
	}
}

func (s *Sessions) Login(ctx context.Context, cmd LoginCommand) (domain.Outcome, error) {
	session, err := s.Get(cmd.Role)
	if err != nil {
		return domain.Outcome{}, err
	}
	return session.Login(ctx, cmd.Identifier, cmd.Secret)
}
