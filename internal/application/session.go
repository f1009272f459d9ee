package application

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

var errGatewayNotBound = errors.New("session has no gateway bound")

type subscriber struct {
	id uint64
	fn func(domain.SessionState)
}

// Session owns the authentication state of one role. Transitions are
// serialized and every subscriber sees them synchronously and in order.
// Subscribers must not trigger another transition from inside the callback.
type Session struct {
	role   domain.Role
	tokens ports.TokenStore
	logger *slog.Logger

	gatewayMu sync.RWMutex
	gateway   ports.Gateway

	transitionMu sync.Mutex

	mu             sync.RWMutex
	state          domain.SessionState
	subscribers    []subscriber
	nextSubscriber uint64

	profile singleflight.Group
}

func NewSession(role domain.Role, tokens ports.TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		role:   role,
		tokens: tokens,
		logger: logger.With("component", "session", "role", string(role)),
		state:  domain.AnonymousState(role),
	}
}

func (s *Session) Role() domain.Role {
	return s.role
}

func (s *Session) Bind(gateway ports.Gateway) {
	s.gatewayMu.Lock()
	defer s.gatewayMu.Unlock()
	s.gateway = gateway
}

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (s *Session) Subscribe(fn func(domain.SessionState)) func() {
	s.mu.Lock()
	s.nextSubscriber++
	id := s.nextSubscriber
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Login signs in through the role's public login endpoint. It returns
// domain.ErrLoginInFlight when another login is pending and
// domain.ErrStaleResponse when a logout overtook the request.
func (s *Session) Login(ctx context.Context, identifier string, secret string) (domain.Outcome, error) {
	gateway := s.currentGateway()
	if gateway == nil {
		return domain.Outcome{}, errGatewayNotBound
	}

	inFlight := false
	started, _ := s.apply(ctx, func(state *domain.SessionState) bool {
		if state.IsLoading {
			inFlight = true
			return false
		}
		state.Status = domain.SessionAuthenticating
		state.IsLoading = true
		state.LastError = ""
		return true
	}, nil)
	if inFlight {
		return domain.Outcome{}, domain.ErrLoginInFlight
	}

	outcome, credential, principal := s.signIn(ctx, gateway, identifier, secret)

	stale := false
	s.apply(ctx, func(state *domain.SessionState) bool {
		if state.Version != started.Version {
			stale = true
			return false
		}
		state.IsLoading = false
		if outcome.OK() {
			state.Status = domain.SessionAuthenticated
			state.IsAuthenticated = true
			state.Credential = credential.Clone()
			state.Principal = principal.Clone()
			return true
		}
		state.LastError = outcome.Message
		if state.IsAuthenticated {
			state.Status = domain.SessionAuthenticated
		} else {
			state.Status = domain.SessionAnonymous
		}
		return true
	}, func(ctx context.Context, _ domain.SessionState) {
		if !outcome.OK() {
			return
		}
		_ = s.tokens.Save(ctx, s.role, *credential)
		if principal != nil {
			_ = s.tokens.SavePrincipal(ctx, s.role, *principal)
		}
	})
	if stale {
		s.logger.InfoContext(ctx, "discarding sign-in response after session change")
		return outcome, domain.ErrStaleResponse
	}

	if outcome.OK() {
		s.logger.InfoContext(ctx, "signed in")
	}
	return outcome, nil
}

func (s *Session) signIn(ctx context.Context, gateway ports.Gateway, identifier string, secret string) (domain.Outcome, *domain.Credential, *domain.Principal) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.DomainError("phone number or email is required"), nil, nil
	}
	if secret == "" {
		return domain.DomainError("password is required"), nil, nil
	}

	outcome := gateway.Call(ctx, ports.Request{
		Role:   s.role,
		Method: http.MethodPost,
		Path:   s.role.LoginPath(),
		Body:   map[string]string{"identifier": identifier, "password": secret},
		Public: true,
	})
	if !outcome.OK() {
		return outcome, nil, nil
	}
	if len(outcome.Payload) == 0 {
		return domain.DomainError(errInvalidPayload.Error()), nil, nil
	}

	credential, principal, err := decodeSignIn(s.role, outcome.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "sign-in response rejected", "error", err)
		if errors.Is(err, errInvalidPayload) {
			return domain.DomainError(errInvalidPayload.Error()), nil, nil
		}
		return domain.DomainError(err.Error()), nil, nil
	}
	if !s.tokens.IsValid(&credential) {
		s.logger.WarnContext(ctx, "sign-in response rejected", "error", "access token expired or without exp claim")
		return domain.DomainError(errInvalidPayload.Error()), nil, nil
	}
	return outcome, &credential, principal
}

// Logout is safe from any state and may be called repeatedly.
func (s *Session) Logout(ctx context.Context) {
	s.apply(ctx, func(state *domain.SessionState) bool {
		*state = domain.AnonymousState(s.role)
		return true
	}, func(ctx context.Context, _ domain.SessionState) {
		_ = s.tokens.Clear(ctx, s.role)
	})
}

// ForceLogout revokes the session only while it still holds the rejected
// credential, so a late 401 cannot end a newer session.
func (s *Session) ForceLogout(ctx context.Context, rejected domain.Credential) bool {
	changed := s.revoke(ctx, rejected)
	if changed {
		s.logger.InfoContext(ctx, "session revoked by server")
	}
	return changed
}

// Active returns the session state, first ending the session when its
// credential has expired locally. An authenticated snapshot from Active
// always carries a credential that IsValid accepts.
func (s *Session) Active(ctx context.Context) domain.SessionState {
	state := s.State()
	if !state.IsAuthenticated || state.Credential == nil || s.tokens.IsValid(state.Credential) {
		return state
	}
	if s.revoke(ctx, *state.Credential) {
		s.logger.InfoContext(ctx, "session expired")
	}
	return s.State()
}

func (s *Session) revoke(ctx context.Context, rejected domain.Credential) bool {
	_, changed := s.apply(ctx, func(state *domain.SessionState) bool {
		if state.Credential == nil || state.Credential.AccessToken != rejected.AccessToken {
			return false
		}
		*state = domain.AnonymousState(s.role)
		return true
	}, func(ctx context.Context, _ domain.SessionState) {
		_ = s.tokens.Clear(ctx, s.role)
	})
	return changed
}

// RestoreFromStorage adopts a stored, unexpired credential without any
// network call. An expired or unreadable credential is removed from storage.
func (s *Session) RestoreFromStorage(ctx context.Context) domain.SessionState {
	credential := s.tokens.Load(ctx, s.role)
	valid := credential != nil && s.tokens.IsValid(credential)

	var principal *domain.Principal
	if valid {
		principal = s.tokens.LoadPrincipal(ctx, s.role)
	}

	state, _ := s.apply(ctx, func(state *domain.SessionState) bool {
		if !valid {
			*state = domain.AnonymousState(s.role)
			return true
		}
		*state = domain.SessionState{
			Role:            s.role,
			Status:          domain.SessionAuthenticated,
			Credential:      credential,
			Principal:       principal,
			IsAuthenticated: true,
		}
		return true
	}, func(ctx context.Context, _ domain.SessionState) {
		if credential != nil && !valid {
			s.logger.InfoContext(ctx, "discarding expired stored credential")
			_ = s.tokens.Clear(ctx, s.role)
		}
	})
	return state
}

// RefreshProfile re-fetches the signed-in principal. Concurrent calls share
// one request, which outlives any single caller giving up.
func (s *Session) RefreshProfile(ctx context.Context) domain.Outcome {
	shared := context.WithoutCancel(ctx)
	results := s.profile.DoChan("profile", func() (any, error) {
		return s.profileRequest(shared, http.MethodGet, nil), nil
	})

	select {
	case result := <-results:
		return result.Val.(domain.Outcome)
	case <-ctx.Done():
		return domain.TransportError()
	}
}

func (s *Session) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) domain.Outcome {
	if update.Empty() {
		return domain.DomainError("nothing to update")
	}
	return s.profileRequest(ctx, http.MethodPatch, update)
}

func (s *Session) profileRequest(ctx context.Context, method string, body any) domain.Outcome {
	gateway := s.currentGateway()
	if gateway == nil {
		return domain.DomainError(errGatewayNotBound.Error())
	}

	current := s.Active(ctx)
	if !current.IsAuthenticated || current.Credential == nil {
		return domain.AuthError("not signed in as " + string(s.role))
	}

	req := ports.Request{Role: s.role, Method: method, Path: "/" + string(s.role) + "/profile"}
	if body != nil {
		req.Body = body
	}
	outcome := gateway.Call(ctx, req)
	if !outcome.OK() {
		return outcome
	}
	if len(outcome.Payload) == 0 {
		return domain.DomainError(errInvalidPayload.Error())
	}

	principal, err := decodeProfile(s.role, outcome.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "profile response rejected", "error", err)
		return domain.DomainError(errInvalidPayload.Error())
	}

	s.apply(ctx, func(state *domain.SessionState) bool {
		if state.Credential == nil || state.Credential.AccessToken != current.Credential.AccessToken {
			return false
		}
		state.Principal = &principal
		return true
	}, func(ctx context.Context, state domain.SessionState) {
		_ = s.tokens.SavePrincipal(ctx, s.role, principal)
	})
	return outcome
}

func (s *Session) currentGateway() ports.Gateway {
	s.gatewayMu.RLock()
	defer s.gatewayMu.RUnlock()
	return s.gateway
}

// apply commits mutate as one transition. persist runs after the commit and
// before subscribers are notified; neither runs when mutate returns false.
func (s *Session) apply(
	ctx context.Context,
	mutate func(state *domain.SessionState) bool,
	persist func(ctx context.Context, state domain.SessionState),
) (domain.SessionState, bool) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	s.mu.Lock()
	next := s.state.Clone()
	if !mutate(&next) {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, false
	}
	next.Role = s.role
	next.Version = s.state.Version + 1
	s.state = next
	subscribers := append([]subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	snapshot := next.Clone()
	if persist != nil {
		persist(context.WithoutCancel(ctx), snapshot)
	}
	for _, sub := range subscribers {
		sub.fn(snapshot.Clone())
	}
	return snapshot, true
}
