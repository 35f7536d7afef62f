package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.RecordUtterance("submitted")
	m.RecordUtterance("submitted")
	m.RecordUtterance("ended")
	m.RecordRefresh("ok", 3)
	m.RecordRefresh("error", 0)
	m.ClientConnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.utterances.WithLabelValues("submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.utterances.WithLabelValues("ended")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.voices))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.panelClients))
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.RecordUtterance("started")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `speakpanel_utterances_total{outcome="started"} 1`)
}

func TestInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
