package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/domain"
)

func TestEvaluateRedirectsEachRoleToItsLoginPath(t *testing.T) {
	t.Parallel()

	fixture := newSessionFixture(t)
	guard := NewRouteGuard(fixture.sessions)

	testCases := []struct {
		role domain.Role
		want string
	}{
		{role: domain.RoleAdmin, want: "/admin/login"},
		{role: domain.RoleSubAdmin, want: "/subadmin/login"},
		{role: domain.RoleUser, want: "/user/login"},
	}

	for _, tc := range testCases {
		decision := guard.Evaluate(context.Background(), tc.role)
		assert.False(t, decision.Allow, tc.role)
		assert.Equal(t, tc.want, decision.Redirect)
	}
}

func TestEvaluateAllowsAuthenticatedRoleOnly(t *testing.T) {
	t.Parallel()

	fixture := newSessionFixture(t)
	guard := NewRouteGuard(fixture.sessions)
	ctx := context.Background()

	require.NoError(t, fixture.tokens.Save(ctx, domain.RoleSubAdmin, domain.Credential{AccessToken: fakeJWT(t, testNow.Add(time.Hour))}))
	fixture.sessions.RestoreAll(ctx)

	assert.Equal(t, Decision{Role: domain.RoleSubAdmin, Allow: true}, guard.Evaluate(ctx, domain.RoleSubAdmin))
	assert.False(t, guard.Evaluate(ctx, domain.RoleAdmin).Allow)
	assert.False(t, guard.Evaluate(ctx, domain.RoleUser).Allow)
}

func TestRequireReturnsAccessDeniedError(t *testing.T) {
	t.Parallel()

	fixture := newSessionFixture(t)
	guard := NewRouteGuard(fixture.sessions)

	err := guard.Require(context.Background(), domain.RoleUser)
	require.ErrorIs(t, err, domain.ErrAuthRequired)

	var denied *AccessDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "/user/login", denied.Redirect)
	assert.ErrorContains(t, err, "not signed in as user")
}

func TestWatchRevokesImmediatelyOnLogout(t *testing.T) {
	t.Parallel()

	fixture := newSessionFixture(t)
	guard := NewRouteGuard(fixture.sessions)
	ctx := context.Background()

	require.NoError(t, fixture.tokens.Save(ctx, domain.RoleAdmin, domain.Credential{AccessToken: fakeJWT(t, testNow.Add(time.Hour))}))
	fixture.sessions.RestoreAll(ctx)

	var decisions []Decision
	initial, stop, err := guard.Watch(ctx, domain.RoleAdmin, func(decision Decision) {
		decisions = append(decisions, decision)
	})
	require.NoError(t, err)
	assert.True(t, initial.Allow)

	fixture.session(t, domain.RoleAdmin).Logout(ctx)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Allow)
	assert.Equal(t, "/admin/login", decisions[0].Redirect)

	stop()
	fixture.session(t, domain.RoleAdmin).Logout(ctx)
	assert.Len(t, decisions, 1)
}

func TestWatchUnknownRole(t *testing.T) {
	t.Parallel()

	guard := NewRouteGuard(newSessionFixture(t).sessions)

	_, _, err := guard.Watch(context.Background(), domain.Role("owner"), func(Decision) {})
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestDecideRequiresCredential(t *testing.T) {
	t.Parallel()

	decision := Decide(domain.SessionState{Role: domain.RoleUser, IsAuthenticated: true})
	assert.False(t, decision.Allow)
	assert.Equal(t, "/user/login", decision.Redirect)
}

func TestEvaluateDeniesOnceCredentialExpires(t *testing.T) {
	t.Parallel()

	fixture := newSessionFixture(t)
	guard := NewRouteGuard(fixture.sessions)
	ctx := context.Background()

	require.NoError(t, fixture.tokens.Save(ctx, domain.RoleUser, domain.Credential{AccessToken: fakeJWT(t, testNow.Add(time.Minute))}))
	fixture.sessions.RestoreAll(ctx)

	var decisions []Decision
	initial, stop, err := guard.Watch(ctx, domain.RoleUser, func(decision Decision) {
		decisions = append(decisions, decision)
	})
	require.NoError(t, err)
	defer stop()
	require.True(t, initial.Allow)

	fixture.advance(time.Hour)

	assert.Equal(t, Decision{Role: domain.RoleUser, Redirect: "/user/login"}, guard.Evaluate(ctx, domain.RoleUser))
	require.ErrorIs(t, guard.Require(ctx, domain.RoleUser), domain.ErrAuthRequired)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Allow)
	assert.Nil(t, fixture.tokens.Load(ctx, domain.RoleUser))
}
