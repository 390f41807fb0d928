package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.FetchAttempt("https", "ok")
		c.Resolution("found", time.Second)
		c.Run("completed")
		c.WorkerBusy(1)
	})
	assert.Nil(t, c.Registry())
}

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.FetchAttempt("https", "transport")
	c.FetchAttempt("https", "transport")
	c.FetchAttempt("http", "ok")
	c.Resolution("found", 200*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchAttempts.WithLabelValues("https", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchAttempts.WithLabelValues("http", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("found")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "careerscan_resolutions_total")
}
