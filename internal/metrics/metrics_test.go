package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Connections(2)
	m.Connections(1)
	m.Evicted()
	m.Event("sendMessage", OutcomeOK, 5*time.Millisecond)
	m.Event("sendMessage", OutcomeOK, time.Millisecond)
	m.Event("createRoom", OutcomeInvalid, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("sendMessage", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("createRoom", OutcomeInvalid)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wirechat_active_connections 1"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Connections(3)
	m.Evicted()
	m.AuthFailed()
	m.Event("x", OutcomeError, time.Second)
}
