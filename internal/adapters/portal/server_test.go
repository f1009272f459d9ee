package portal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/adapters/api"
	"github.com/bnema/crew/internal/adapters/metrics"
	"github.com/bnema/crew/internal/adapters/storage/memory"
	"github.com/bnema/crew/internal/adapters/tokenstore"
	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

func fakeJWT(t *testing.T, exp time.Time) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix()})
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

type fakeAPI struct {
	server      *httptest.Server
	access      string
	worksCalls  atomic.Int32
	rejectWorks atomic.Bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{access: fakeJWT(t, time.Now().Add(time.Hour))}
	mux := http.NewServeMux()
	for _, role := range domain.Roles {
		mux.HandleFunc("POST /"+string(role)+"/login", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
				return
			}
			_, _ = fmt.Fprintf(w, `{"tokens":{"access":%q},"user":{"id":7,"name":"Asha","role":%q}}`, f.access, role)
		})
		mux.HandleFunc("GET /"+string(role)+"/works", func(w http.ResponseWriter, r *http.Request) {
			f.worksCalls.Add(1)
			if f.rejectWorks.Load() || r.Header.Get("Authorization") != "Bearer "+f.access {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"token expired"}`))
				return
			}
			_, _ = w.Write([]byte(`{"works":[{"id":"w1","title":"Wedding lunch","required_staff":4}]}`))
		})
	}
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type portalFixture struct {
	api      *fakeAPI
	sessions *application.Sessions
	deps     Deps
	metrics  *metrics.Metrics
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()

	fake := newFakeAPI(t)
	tokens := tokenstore.NewStore(memory.NewStore(), ports.SystemClock{}, nil)
	sessions := application.NewSessions(tokens, nil)
	m := metrics.New()
	gateway, err := api.New(api.Config{BaseURL: fake.server.URL}, sessions, api.WithRecorder(m))
	require.NoError(t, err)
	sessions.Bind(gateway)

	return &portalFixture{
		api:      fake,
		sessions: sessions,
		metrics:  m,
		deps: Deps{
			Sessions: sessions,
			Guard:    application.NewRouteGuard(sessions),
			Catering: application.NewCateringService(gateway),
			Metrics:  m,
		},
	}
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postLogin(t *testing.T, client *http.Client, baseURL string, role domain.Role, password string) *http.Response {
	t.Helper()

	form := url.Values{"identifier": {"9999999999"}, "password": {password}}
	resp, err := client.PostForm(baseURL+role.LoginPath(), form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestProtectRedirectsEachRoleToItsLoginPath(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	for _, role := range domain.Roles {
		resp, err := client.Get(portal.URL + "/" + string(role) + "/works")
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, role.LoginPath(), resp.Header.Get("Location"))
	}
	assert.Zero(t, fixture.api.worksCalls.Load())
}

func TestLoginThenProtectedViewLoads(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	resp := postLogin(t, client, portal.URL, domain.RoleSubAdmin, "secret")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/subadmin/", resp.Header.Get("Location"))

	works, err := client.Get(portal.URL + "/subadmin/works")
	require.NoError(t, err)
	defer func() { _ = works.Body.Close() }()
	require.Equal(t, http.StatusOK, works.StatusCode)

	var body struct {
		Works []domain.Work `json:"works"`
	}
	require.NoError(t, json.NewDecoder(works.Body).Decode(&body))
	require.Len(t, body.Works, 1)
	assert.Equal(t, "Wedding lunch", body.Works[0].Title)

	home, err := client.Get(portal.URL + "/subadmin/")
	require.NoError(t, err)
	defer func() { _ = home.Body.Close() }()
	var view sessionView
	require.NoError(t, json.NewDecoder(home.Body).Decode(&view))
	assert.True(t, view.Authenticated)
	require.NotNil(t, view.Principal)
	assert.Equal(t, "7", view.Principal.ID)

	assert.False(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleAdmin).Allow)
}

func TestLoginWithWrongPasswordRendersServerMessage(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	resp := postLogin(t, noRedirectClient(), portal.URL, domain.RoleAdmin, "wrong")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid credentials")

	session, err := fixture.sessions.Get(domain.RoleAdmin)
	require.NoError(t, err)
	state := session.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, "Invalid credentials", state.LastError)
}

func TestLogoutRedirectsToLoginAndRevokesAccess(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	postLogin(t, client, portal.URL, domain.RoleUser, "secret")

	resp, err := client.Post(portal.URL+"/user/logout", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/user/login", resp.Header.Get("Location"))

	resp, err = client.Get(portal.URL + "/user/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestServerRevokesViewWhenAPIRejectsToken(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	server, err := Start("127.0.0.1:0", fixture.deps)
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	client := noRedirectClient()
	postLogin(t, client, server.URL(), domain.RoleUser, "secret")
	assert.True(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleUser).Allow)

	fixture.api.rejectWorks.Store(true)
	resp, err := client.Get(server.URL() + "/user/works")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/user/login", resp.Header.Get("Location"))
	assert.False(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleUser).Allow)
	assert.Equal(t, 1.0, testutil.ToFloat64(fixture.metrics.SessionRevocations.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fixture.metrics.RequestOutcome.WithLabelValues("user", "auth_error")))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	health, err := http.Get(portal.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = health.Body.Close() }()
	body, err := io.ReadAll(health.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	postLogin(t, noRedirectClient(), portal.URL, domain.RoleAdmin, "secret")

	scrape, err := http.Get(portal.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = scrape.Body.Close() }()
	exposition, err := io.ReadAll(scrape.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(exposition), `crew_gateway_outcomes_total{kind="success",role="admin"} 1`))
}

func TestStartRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := Start("127.0.0.1:0", Deps{})
	require.Error(t, err)
}

func TestForeignHostIsRejected(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	postLogin(t, client, portal.URL, domain.RoleAdmin, "secret")

	req, err := http.NewRequest(http.MethodGet, portal.URL+"/admin/works", nil)
	require.NoError(t, err)
	req.Host = "attacker.example.com"
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, fixture.api.worksCalls.Load())
}

func TestCrossOriginLogoutIsRejected(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	postLogin(t, client, portal.URL, domain.RoleAdmin, "secret")

	req, err := http.NewRequest(http.MethodPost, portal.URL+"/admin/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://attacker.example.com")
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.True(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleAdmin).Allow)

	req, err = http.NewRequest(http.MethodPost, portal.URL+"/admin/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Referer", "http://attacker.example.com/page")
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.True(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleAdmin).Allow)
}

func TestSameOriginLogoutIsAccepted(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	portal := httptest.NewServer(NewHandler(fixture.deps))
	defer portal.Close()

	client := noRedirectClient()
	postLogin(t, client, portal.URL, domain.RoleAdmin, "secret")

	req, err := http.NewRequest(http.MethodPost, portal.URL+"/admin/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", portal.URL)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.False(t, fixture.deps.Guard.Evaluate(context.Background(), domain.RoleAdmin).Allow)
}

func TestStartRejectsNonLoopbackListenAddress(t *testing.T) {
	t.Parallel()

	fixture := newPortalFixture(t)
	for _, addr := range []string{"0.0.0.0:0", ":0", "192.0.2.10:8080"} {
		_, err := Start(addr, fixture.deps)
		require.Error(t, err, addr)
	}
}

func TestIsLoopbackHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want bool
	}{
		{host: "localhost", want: true},
		{host: "LOCALHOST", want: true},
		{host: "127.0.0.1", want: true},
		{host: "[::1]", want: true},
		{host: "::1", want: true},
		{host: "attacker.example.com", want: false},
		{host: "localhost.attacker.example.com", want: false},
		{host: "0.0.0.0", want: false},
		{host: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isLoopbackHost(tt.host))
		})
	}
}
