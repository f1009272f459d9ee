package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/adapters/storage/memory"
	"github.com/bnema/crew/internal/adapters/tokenstore"
	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
	portmocks "github.com/bnema/crew/internal/ports/mocks"
)

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func fakeJWT(t *testing.T, exp time.Time) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix(), "sub": "1"})
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

type sessionFixture struct {
	backend  *memory.Store
	tokens   *tokenstore.Store
	gateway  *portmocks.MockGateway
	sessions *Sessions

	mu  sync.Mutex
	now time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	return newSessionFixtureWithStorage(t, memory.NewStore())
}

func newSessionFixtureWithStorage(t *testing.T, storage ports.Storage) *sessionFixture {
	t.Helper()

	fixture := &sessionFixture{now: testNow}
	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Now().RunAndReturn(fixture.clockNow).Maybe()

	fixture.tokens = tokenstore.NewStore(storage, clock, nil)
	fixture.gateway = portmocks.NewMockGateway(t)
	fixture.sessions = NewSessions(fixture.tokens, nil)
	fixture.sessions.Bind(fixture.gateway)
	fixture.backend, _ = storage.(*memory.Store)
	return fixture
}

func (f *sessionFixture) clockNow() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// advance moves the token store clock forward.
func (f *sessionFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *sessionFixture) assertNothingStored(t *testing.T) {
	t.Helper()

	for _, role := range domain.Roles {
		for _, key := range []string{string(role) + "/token", string(role) + "/user"} {
			_, err := f.backend.Get(context.Background(), key)
			assert.ErrorIs(t, err, domain.ErrKeyNotFound, key)
		}
	}
}

func (f *sessionFixture) session(t *testing.T, role domain.Role) *Session {
	t.Helper()

	session, err := f.sessions.Get(role)
	require.NoError(t, err)
	return session
}

func signInPayloadJSON(access string, role domain.Role, id string, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"tokens":{"access":%q,"refresh":"refresh-%s"},"user":{"id":%q,"name":%q,"role":%q,"phone":"9876543210"}}`,
		access, id, id, name, role,
	))
}
