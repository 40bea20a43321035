package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "workforce"

// Collector owns a private registry so that tests and multiple servers in
// one process do not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	rateLimited      prometheus.Counter
	accrualEntries   *prometheus.CounterVec
	leaveTransitions *prometheus.CounterVec
	imports          *prometheus.CounterVec
	importRecords    *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		accrualEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leave",
			Name:      "accrual_employees_total",
			Help:      "Employees processed by accrual batches, by outcome.",
		}, []string{"result"}),
		leaveTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leave",
			Name:      "request_events_total",
			Help:      "Leave request workflow transitions.",
		}, []string{"event"}),
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "uploads_total",
			Help:      "Attendance uploads by final status.",
		}, []string{"status"}),
		importRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "records_total",
			Help:      "Attendance file rows by outcome.",
		}, []string{"kind"}),
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Record(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordAccrual(created, existing, skipped, failed int) {
	c.accrualEntries.WithLabelValues("created").Add(float64(created))
	c.accrualEntries.WithLabelValues("existing").Add(float64(existing))
	c.accrualEntries.WithLabelValues("skipped").Add(float64(skipped))
	c.accrualEntries.WithLabelValues("failed").Add(float64(failed))
}

func (c *Collector) RecordLeaveEvent(event string) {
	c.leaveTransitions.WithLabelValues(event).Inc()
}

func (c *Collector) RecordImport(status string, matched, unmatched, skipped int) {
	c.imports.WithLabelValues(status).Inc()
	c.importRecords.WithLabelValues("matched").Add(float64(matched))
	c.importRecords.WithLabelValues("unmatched").Add(float64(unmatched))
	c.importRecords.WithLabelValues("skipped").Add(float64(skipped))
}
