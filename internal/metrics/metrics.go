// Package metrics collects and exposes Prometheus metrics for the API.
//
// WHY AN INTERFACE?
// The service layer records domain events (registrations, logins, posts,
// emails) without knowing Prometheus exists. Tests pass a no-op recorder;
// the composition root passes the real Collector.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the application sees.
type Recorder interface {
	RecordRegistration()
	RecordLogin(method string)
	RecordLoginFailure()
	RecordPostPublished()
	RecordEmailFailure()
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector implements Recorder on top of Prometheus primitives.
type Collector struct {
	registrations  prometheus.Counter
	logins         *prometheus.CounterVec
	loginFailures  prometheus.Counter
	postsPublished prometheus.Counter
	emailFailures  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer in main; a fresh registry in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "striveblog_registrations_total",
			Help: "Total number of author registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "striveblog_logins_total",
			Help: "Total number of successful logins by method.",
		}, []string{"method"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "striveblog_login_failures_total",
			Help: "Total number of rejected login attempts.",
		}),
		postsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "striveblog_posts_published_total",
			Help: "Total number of blog posts created.",
		}),
		emailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "striveblog_email_failures_total",
			Help: "Total number of transactional emails that failed to send.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "striveblog_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "striveblog_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.loginFailures,
		c.postsPublished,
		c.emailFailures,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLogin counts a successful login; method is "password" or "google".
func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
}

func (c *Collector) RecordPostPublished() {
	c.postsPublished.Inc()
}

func (c *Collector) RecordEmailFailure() {
	c.emailFailures.Inc()
}

// RecordHTTPRequest counts a finished request. route is the chi route
// pattern ("/blogposts/{id}"), not the raw path, to keep cardinality flat.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the HTTP handler Prometheus scrapes at /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopRecorder discards every event. Used in tests.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) RecordRegistration()  {}
func (NopRecorder) RecordLogin(string)   {}
func (NopRecorder) RecordLoginFailure()  {}
func (NopRecorder) RecordPostPublished() {}
func (NopRecorder) RecordEmailFailure()  {}

func (NopRecorder) RecordHTTPRequest(string, string, int, time.Duration) {}
