package tokenstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/adapters/storage/memory"
	"github.com/bnema/crew/internal/domain"
	portmocks "github.com/bnema/crew/internal/ports/mocks"
)

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func fakeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	return fakeJWTWithHeader(t, `{"alg":"none","typ":"JWT"}`, claims)
}

func fakeJWTWithHeader(t *testing.T, rawHeader string, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(rawHeader))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func newTestStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()

	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow).Maybe()

	backend := memory.NewStore()
	return NewStore(backend, clock, nil), backend
}

func TestIsValid(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	future := map[string]any{"exp": testNow.Add(time.Hour).Unix()}

	testCases := []struct {
		name       string
		credential *domain.Credential
		want       bool
	}{
		{name: "nil credential", credential: nil, want: false},
		{name: "empty access token", credential: &domain.Credential{}, want: false},
		{name: "two segments", credential: &domain.Credential{AccessToken: "abc.def"}, want: false},
		{name: "four segments", credential: &domain.Credential{AccessToken: "a.b.c.d"}, want: false},
		{name: "payload not base64 json", credential: &domain.Credential{AccessToken: "eyJhbGciOiJub25lIn0.!!!.sig"}, want: false},
		{name: "missing exp", credential: &domain.Credential{AccessToken: fakeJWT(t, map[string]any{"sub": "1"})}, want: false},
		{name: "expired", credential: &domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": testNow.Add(-time.Minute).Unix()})}, want: false},
		{name: "exp equals now", credential: &domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": testNow.Unix()})}, want: false},
		{name: "exp one second ahead", credential: &domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": testNow.Add(time.Second).Unix()})}, want: true},
		{name: "exp in an hour", credential: &domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": testNow.Add(time.Hour).Unix()})}, want: true},
		{name: "header without alg", credential: &domain.Credential{AccessToken: fakeJWTWithHeader(t, `{"typ":"JWT"}`, future)}, want: true},
		{name: "header with unknown alg", credential: &domain.Credential{AccessToken: fakeJWTWithHeader(t, `{"alg":"XYZ"}`, future)}, want: true},
		{name: "header not json", credential: &domain.Credential{AccessToken: fakeJWTWithHeader(t, `not-json`, future)}, want: true},
		{name: "empty payload segment", credential: &domain.Credential{AccessToken: "eyJhbGciOiJub25lIn0..sig"}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, store.IsValid(tc.credential))
		})
	}
}

func TestExpiryReturnsExpClaim(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	exp := testNow.Add(90 * time.Minute)

	got, ok := store.Expiry(&domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": exp.Unix()})})
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	credential := domain.Credential{AccessToken: fakeJWT(t, map[string]any{"exp": testNow.Add(time.Hour).Unix()}), RefreshToken: "r"}

	require.NoError(t, store.Save(ctx, domain.RoleAdmin, credential))
	require.NoError(t, store.Save(ctx, domain.RoleAdmin, credential))

	got := store.Load(ctx, domain.RoleAdmin)
	require.NotNil(t, got)
	assert.Equal(t, credential, *got)

	assert.Nil(t, store.Load(ctx, domain.RoleSubAdmin), "roles must not share credentials")
}

func TestClearRemovesTokenAndPrincipal(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.RoleUser, domain.Credential{AccessToken: "a.b.c"}))
	require.NoError(t, store.SavePrincipal(ctx, domain.RoleUser, domain.Principal{ID: "7", Name: "Meena"}))
	require.NoError(t, store.Save(ctx, domain.RoleAdmin, domain.Credential{AccessToken: "x.y.z"}))

	require.NoError(t, store.Clear(ctx, domain.RoleUser))
	require.NoError(t, store.Clear(ctx, domain.RoleUser))

	assert.Nil(t, store.Load(ctx, domain.RoleUser))
	assert.Nil(t, store.LoadPrincipal(ctx, domain.RoleUser))
	assert.NotNil(t, store.Load(ctx, domain.RoleAdmin))
	for _, key := range []string{"user/token", "user/user"} {
		_, err := backend.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, key)
	}
}

func TestPrincipalRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	principal := domain.Principal{ID: "42", Name: "Anil", Role: domain.RoleSubAdmin, Phone: "9999999999"}

	require.NoError(t, store.SavePrincipal(ctx, domain.RoleSubAdmin, principal))

	got := store.LoadPrincipal(ctx, domain.RoleSubAdmin)
	require.NotNil(t, got)
	assert.Equal(t, principal, *got)
}

func TestLoadDegradesToNilOnCorruptOrUnavailableStorage(t *testing.T) {
	t.Parallel()

	backend := portmocks.NewMockStorage(t)
	store := NewStore(backend, nil, nil)
	ctx := context.Background()

	backend.EXPECT().Get(mock.Anything, "admin/token").Return("{not json", nil).Once()
	backend.EXPECT().Get(mock.Anything, "subadmin/token").Return("", errors.New("permission denied")).Once()
	backend.EXPECT().Get(mock.Anything, "user/token").Return(`{"access":""}`, nil).Once()

	assert.Nil(t, store.Load(ctx, domain.RoleAdmin))
	assert.Nil(t, store.Load(ctx, domain.RoleSubAdmin))
	assert.Nil(t, store.Load(ctx, domain.RoleUser))
}

func TestSaveReportsStorageFailure(t *testing.T) {
	t.Parallel()

	backend := portmocks.NewMockStorage(t)
	store := NewStore(backend, nil, nil)

	backend.EXPECT().Put(mock.Anything, "admin/token", mock.Anything).Return(errors.New("quota exceeded")).Once()

	err := store.Save(context.Background(), domain.RoleAdmin, domain.Credential{AccessToken: "a.b.c"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestSaveRejectsEmptyCredential(t *testing.T) {
	t.Parallel()

	store, backend := newTestStore(t)

	require.Error(t, store.Save(context.Background(), domain.RoleAdmin, domain.Credential{}))
	_, err := backend.Get(context.Background(), "admin/token")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
