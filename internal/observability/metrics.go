package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "process_tracker"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by route pattern and status code.",
	}, []string{"route", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests, labeled by route pattern.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"route"})

	loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts, labeled by outcome.",
	}, []string{"outcome"})

	recordsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "records",
		Name:      "started_total",
		Help:      "Records started online.",
	})

	recordsStopped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "records",
		Name:      "stopped_total",
		Help:      "Records stopped online.",
	})

	recordsSynced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "records_ingested_total",
		Help:      "Offline records accepted through the sync endpoint, including re-sends.",
	})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "last_ingest_timestamp_seconds",
		Help:      "Unix timestamp of the most recent sync ingest.",
	})

	photoBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "photos",
		Name:      "upload_bytes",
		Help:      "Size of uploaded photos before compression.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	processCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "process_cache",
		Name:      "lookups_total",
		Help:      "Process list cache lookups, labeled hit or miss.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		loginAttempts,
		recordsStarted,
		recordsStopped,
		recordsSynced,
		lastSyncGauge,
		photoBytes,
		processCache,
	)
}

// ObserveRequest records one served request.
func ObserveRequest(route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// LoginAttempt counts a login by outcome: ok, invalid, pending, rejected.
func LoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

func RecordStarted() { recordsStarted.Inc() }

func RecordStopped() { recordsStopped.Inc() }

// RecordsIngested counts records accepted by the sync endpoint.
func RecordsIngested(n int, at time.Time) {
	if n <= 0 {
		return
	}
	recordsSynced.Add(float64(n))
	lastSyncGauge.Set(float64(at.Unix()))
}

func PhotoUploaded(size int64) {
	photoBytes.Observe(float64(size))
}

// ProcessCacheLookup counts a cache lookup.
func ProcessCacheLookup(hit bool) {
	if hit {
		processCache.WithLabelValues("hit").Inc()
		return
	}
	processCache.WithLabelValues("miss").Inc()
}
