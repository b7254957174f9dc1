// Package metrics provides Prometheus metrics for the publishing pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lantern"

// Collector groups the pipeline metrics. A nil *Collector is valid and
// records nothing, which keeps tests free of registry plumbing.
type Collector struct {
	registry *prometheus.Registry

	authAttempts    *prometheus.CounterVec
	gateRejections  *prometheus.CounterVec
	publications    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	mediaRejections prometheus.Counter
	views           prometheus.Counter
	viewFailures    prometheus.Counter
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		gateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Gated actions rejected before reaching the pipeline",
		}, []string{"gate", "reason"}),
		publications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publications_total",
			Help:      "Publish and edit operations by outcome",
		}, []string{"action", "outcome"}),
		publishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of publish and edit operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		mediaRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_rejections_total",
			Help:      "Uploads rejected by media validation",
		}),
		views: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_views_total",
			Help:      "Article views recorded",
		}),
		viewFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_view_failures_total",
			Help:      "Article views that could not be recorded",
		}),
	}
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) AuthAttempt(outcome string) {
	if c == nil {
		return
	}
	c.authAttempts.WithLabelValues(outcome).Inc()
}

func (c *Collector) GateRejected(gate, reason string) {
	if c == nil {
		return
	}
	c.gateRejections.WithLabelValues(gate, reason).Inc()
}

func (c *Collector) Publication(action, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.publications.WithLabelValues(action, outcome).Inc()
	c.publishDuration.WithLabelValues(action).Observe(took.Seconds())
}

func (c *Collector) MediaRejected() {
	if c == nil {
		return
	}
	c.mediaRejections.Inc()
}

func (c *Collector) View(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.views.Inc()
		return
	}
	c.viewFailures.Inc()
}
