package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billtrack"

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	billsCreated   prometheus.Counter
	billsUpdated   *prometheus.CounterVec
	listDuration   prometheus.Histogram
	receiversCache *prometheus.CounterVec
	events         *prometheus.CounterVec
}

// NewPrometheus registers the application collectors plus the Go runtime
// and process collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		registry: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		billsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Bills created.",
		}),
		billsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_updated_total",
			Help:      "Bill partial updates by field.",
		}, []string{"field"}),
		listDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bills_list_duration_seconds",
			Help:      "Store latency of bill listings.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		receiversCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receivers_cache_requests_total",
			Help:      "Receiver list cache lookups by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Bill events published by type and status.",
		}, []string{"type", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpDuration,
		r.billsCreated,
		r.billsUpdated,
		r.listDuration,
		r.receiversCache,
		r.events,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) IncBillCreated() {
	r.billsCreated.Inc()
}

func (r *PrometheusRecorder) IncBillUpdated(field string) {
	r.billsUpdated.WithLabelValues(field).Inc()
}

func (r *PrometheusRecorder) ObserveListDuration(duration time.Duration) {
	r.listDuration.Observe(duration.Seconds())
}

func (r *PrometheusRecorder) IncReceiversCacheHit() {
	r.receiversCache.WithLabelValues("hit").Inc()
}

func (r *PrometheusRecorder) IncReceiversCacheMiss() {
	r.receiversCache.WithLabelValues("miss").Inc()
}

func (r *PrometheusRecorder) IncEventPublished(eventType, status string) {
	r.events.WithLabelValues(eventType, status).Inc()
}
