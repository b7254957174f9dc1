package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.AuthAttempt("success")
		c.GateRejected("login", "rate_limited")
		c.Publication("publish", "success", time.Millisecond)
		c.MediaRejected()
		c.View(true)
	})
}

func TestCollector_Counts(t *testing.T) {
	c := New()

	c.View(true)
	c.View(true)
	c.View(false)
	c.AuthAttempt("invalid")
	c.GateRejected("publish", "rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.views))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.viewFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.gateRejections.WithLabelValues("publish", "rate_limited")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.View(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lantern_article_views_total 1")
}
