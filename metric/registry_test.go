package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_GathersCoreMetrics(t *testing.T) {
	r := NewRegistry()

	r.Metrics.RecordSessionStart("qr")
	r.Metrics.RecordSessionsActive(3)
	r.Metrics.RecordMessageSent("text", "ok")
	r.Metrics.RecordHTTPRequest("/sessions/start", "POST", "200", 12*time.Millisecond)
	r.Metrics.RecordEngineStatus(true)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["whastapweb_sessions_starts_total"])
	assert.True(t, names["whastapweb_sessions_active"])
	assert.True(t, names["whastapweb_messages_sent_total"])
	assert.True(t, names["whastapweb_http_requests_total"])
	assert.True(t, names["whastapweb_engine_connected"])
}

func TestHandler_ServesExposition(t *testing.T) {
	r := NewRegistry()
	r.Metrics.RecordSessionsActive(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "whastapweb_sessions_active")
}

func TestNilMetrics_RecordIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSessionStart("qr")
	m.RecordSessionsActive(1)
	m.RecordMessageSent("text", "ok")
	m.RecordHTTPRequest("/", "GET", "200", time.Millisecond)
	m.RecordEngineStatus(false)
}
