package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	decisions *prometheus.CounterVec
	logins    *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rhportal_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rhportal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rhportal_access_decisions_total",
			Help: "Route access decisions by outcome and credential state.",
		}, []string{"outcome", "credential"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rhportal_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
	}
	c.registry.MustRegister(
		c.requests, c.durations, c.decisions, c.logins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Record(route, method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.durations.WithLabelValues(route).Observe(duration.Seconds())
}

func (c *Collector) Decision(outcome, credential string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(outcome, credential).Inc()
}

func (c *Collector) Login(result string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
