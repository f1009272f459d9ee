package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/domain"
)

func TestRecordOutcome(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordOutcome(domain.RoleAdmin, domain.OutcomeSuccess, 20*time.Millisecond)
	m.RecordOutcome(domain.RoleAdmin, domain.OutcomeSuccess, 30*time.Millisecond)
	m.RecordOutcome(domain.RoleUser, domain.OutcomeAuthError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestOutcome.WithLabelValues("admin", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestOutcome.WithLabelValues("user", "auth_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestLatency))
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordOutcome(domain.RoleAdmin, domain.OutcomeSuccess, time.Second)
	m.RecordRevocation(domain.RoleAdmin)
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordRevocation(domain.RoleSubAdmin)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `crew_session_revocations_total{role="subadmin"} 1`)
}
