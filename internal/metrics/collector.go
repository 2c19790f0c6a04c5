package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the prometheus instruments for the query pipeline.
// All methods are nil-safe so callers can pass a nil collector to disable
// metrics entirely.
type Collector struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	attemptsTotal prometheus.Counter
	retriesTotal  *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	installAttempts prometheus.Counter
}

// NewCollector creates a collector registering on reg. A nil reg falls back
// to the default prometheus registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{}

	c.queriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries by final result",
		},
		[]string{"result"},
	)

	c.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query duration in seconds, including retries and backoff",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	c.attemptsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Total number of provider call attempts",
		},
	)

	c.retriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries by failure kind",
		},
		[]string{"kind"},
	)

	c.cacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		},
	)

	c.cacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		},
	)

	c.installAttempts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "install_attempts_total",
			Help:      "Total number of remediation hook invocations",
		},
	)

	return c
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the process-wide collector, registered once on the
// default prometheus registry.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector("queryflow", nil)
	})
	return defaultCollector
}

// QueryCompleted records a finished query with its result label
// ("success", "cache_hit" or an error code) and total duration.
func (c *Collector) QueryCompleted(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(result).Inc()
	c.queryDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Attempt records one provider call attempt.
func (c *Collector) Attempt() {
	if c == nil {
		return
	}
	c.attemptsTotal.Inc()
}

// Retry records a scheduled retry with the failure kind that caused it.
func (c *Collector) Retry(kind string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(kind).Inc()
}

// CacheHit records a response cache hit.
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// CacheMiss records a response cache miss.
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}

// InstallAttempt records one remediation hook invocation.
func (c *Collector) InstallAttempt() {
	if c == nil {
		return
	}
	c.installAttempts.Inc()
}
