package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"absensi/internal/domain/attendance"
)

const namespace = "absensi"

// Collector owns a private registry so tests can build many servers in one process.
type Collector struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	events      *prometheus.CounterVec
	photoErrors *prometheus.CounterVec
	sweeps      prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_events_total",
			Help:      "Recorded check-in and check-out events by status.",
		}, []string{"event", "status"}),
		photoErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_photo_failures_total",
			Help:      "Event photos that could not be persisted.",
		}, []string{"event"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_absences_marked_total",
			Help:      "Alpha records inserted by the absence sweep.",
		}),
	}
	c.registry.MustRegister(
		c.requests, c.duration, c.events, c.photoErrors, c.sweeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Record(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(route).Observe(duration.Seconds())
}

func (c *Collector) AttendanceRecorded(event attendance.Event, status attendance.Status) {
	c.events.WithLabelValues(string(event), string(status)).Inc()
}

func (c *Collector) PhotoFailed(event attendance.Event) {
	c.photoErrors.WithLabelValues(string(event)).Inc()
}

func (c *Collector) AbsencesMarked(n int) {
	c.sweeps.Add(float64(n))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
