package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staffledger"

// Collector owns a private registry holding the HTTP and report metrics.
// It satisfies the report observer and the request recorder.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram

	reportBuilds        prometheus.Counter
	reportBuildDuration prometheus.Histogram
	reportEmployees     prometheus.Counter
	reportFailures      prometheus.Counter
	reportCache         *prometheus.CounterVec
	reportInvalidated   prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by status code.",
		}, []string{"code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		reportBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "builds_total",
			Help:      "Full or partial year report computations.",
		}),
		reportBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "build_duration_seconds",
			Help:      "Time spent computing a year report.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		reportEmployees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "employees_computed_total",
			Help:      "Employees computed across report builds.",
		}),
		reportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "employee_failures_total",
			Help:      "Employees left unresolved by a report build.",
		}),
		reportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "cache_lookups_total",
			Help:      "Year report lookups, by result.",
		}, []string{"result"}),
		reportInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "invalidations_total",
			Help:      "Employee invalidations and roster resets.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.requestDuration,
		c.reportBuilds,
		c.reportBuildDuration,
		c.reportEmployees,
		c.reportFailures,
		c.reportCache,
		c.reportInvalidated,
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// ReportBuilt counts one full or partial rebuild of a year report.
func (c *Collector) ReportBuilt(duration time.Duration, employees, failed int) {
	c.reportBuilds.Inc()
	c.reportBuildDuration.Observe(duration.Seconds())
	c.reportEmployees.Add(float64(employees))
	c.reportFailures.Add(float64(failed))
}

func (c *Collector) ReportCacheHit() {
	c.reportCache.WithLabelValues("hit").Inc()
}

func (c *Collector) ReportCacheMiss() {
	c.reportCache.WithLabelValues("miss").Inc()
}

func (c *Collector) ReportInvalidated() {
	c.reportInvalidated.Inc()
}

// Registry exposes the registry for scraping and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry:          c.registry,
		EnableOpenMetrics: true,
	})
}
