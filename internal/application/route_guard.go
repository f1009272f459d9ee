package application

import (
	"context"
	"fmt"

	"github.com/bnema/crew/internal/domain"
)

type Decision struct {
	Role     domain.Role
	Allow    bool
	Redirect string
}

func Decide(state domain.SessionState) Decision {
	if state.IsAuthenticated && state.Credential != nil {
		return Decision{Role: state.Role, Allow: true}
	}
	return Decision{Role: state.Role, Redirect: state.Role.LoginPath()}
}

// AccessDeniedError is returned for a protected view of a role that is not
// signed in.
type AccessDeniedError struct {
	Role     domain.Role
	Redirect string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("not signed in as %s (login at %s)", e.Role, e.Redirect)
}

func (e *AccessDeniedError) Unwrap() error {
	return domain.ErrAuthRequired
}

type RouteGuard struct {
	sessions *Sessions
}

func NewRouteGuard(sessions *Sessions) *RouteGuard {
	return &RouteGuard{sessions: sessions}
}

// Evaluate decides on the role's current session. A credential that expired
// since the last check ends the session before the decision is made.
func (g *RouteGuard) Evaluate(ctx context.Context, role domain.Role) Decision {
	session, err := g.sessions.Get(role)
	if err != nil {
		return Decision{Role: role, Redirect: "/"}
	}
	return Decide(session.Active(ctx))
}

func (g *RouteGuard) Require(ctx context.Context, role domain.Role) error {
	decision := g.Evaluate(ctx, role)
	if decision.Allow {
		return nil
	}
	return &AccessDeniedError{Role: role, Redirect: decision.Redirect}
}

// Watch returns the current decision and calls fn with a fresh decision on
// every later transition of the role's session.
func (g *RouteGuard) Watch(ctx context.Context, role domain.Role, fn func(Decision)) (Decision, func(), error) {
	session, err := g.sessions.Get(role)
	if err != nil {
		return Decision{}, nil, err
	}
	stop := session.Subscribe(func(state domain.SessionState) {
		fn(Decide(state))
	})
	return Decide(session.Active(ctx)), stop, nil
}
