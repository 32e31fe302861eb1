// Package metrics exposes Prometheus counters for the job lifecycle.
//
// Metrics:
//   - longrun_jobs_created_total: jobs built by the factory
//   - longrun_jobs_started_total: jobs stamped with an interval
//   - longrun_registry_writes_total: successful registrations
//   - longrun_registry_failures_total{operation}: failed registry calls
//   - longrun_reconcile_removals_total: registry entries dropped because the job concluded
//   - longrun_lookups_total{source}: lookups served from memory, the registry, or missing
//   - longrun_status_queries_total{status}: derived statuses reported to callers
//   - longrun_resident_jobs: jobs currently held in memory
//   - longrun_job_duration_seconds: assigned job durations
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "longrun"

// Lookup sources.
const (
	SourceResident = "resident"
	SourceRegistry = "registry"
	SourceMissing  = "missing"
)

// Collector holds the lifecycle metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	jobsCreated       prometheus.Counter
	jobsStarted       prometheus.Counter
	registryWrites    prometheus.Counter
	registryFailures  *prometheus.CounterVec
	reconcileRemovals prometheus.Counter
	lookups           *prometheus.CounterVec
	statusQueries     *prometheus.CounterVec
	residentJobs      prometheus.Gauge
	jobDuration       prometheus.Histogram
}

// NewCollector creates a collector registered on a fresh registry, with the Go
// runtime and process collectors alongside.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of jobs built by the factory",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of jobs started",
		}),
		registryWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_writes_total",
			Help:      "Total number of jobs recorded in the jobs registry",
		}),
		registryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_failures_total",
			Help:      "Total number of failed jobs registry calls",
		}, []string{"operation"}),
		reconcileRemovals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_removals_total",
			Help:      "Total number of registry entries removed because the job concluded",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total number of job lookups by where the job was found",
		}, []string{"source"}),
		statusQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_queries_total",
			Help:      "Total number of status queries by derived status",
		}, []string{"status"}),
		residentJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resident_jobs",
			Help:      "Current number of jobs held in memory",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Durations assigned to created jobs",
			Buckets:   prometheus.LinearBuckets(0, 10, 13),
		}),
	}

	c.registry.MustRegister(
		c.jobsCreated,
		c.jobsStarted,
		c.registryWrites,
		c.registryFailures,
		c.reconcileRemovals,
		c.lookups,
		c.statusQueries,
		c.residentJobs,
		c.jobDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordCreated records a job built with the given duration in seconds.
func (c *Collector) RecordCreated(durationSeconds int64) {
	if c == nil {
		return
	}
	c.jobsCreated.Inc()
	c.jobDuration.Observe(float64(durationSeconds))
}

func (c *Collector) RecordStarted() {
	if c == nil {
		return
	}
	c.jobsStarted.Inc()
}

func (c *Collector) RecordRegistered() {
	if c == nil {
		return
	}
	c.registryWrites.Inc()
}

// RecordRegistryFailure records a failed registry call ("put", "get", "remove", "keys").
func (c *Collector) RecordRegistryFailure(operation string) {
	if c == nil {
		return
	}
	c.registryFailures.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordReconcileRemoval() {
	if c == nil {
		return
	}
	c.reconcileRemovals.Inc()
}

// RecordLookup records where a lookup was served from.
func (c *Collector) RecordLookup(source string) {
	if c == nil {
		return
	}
	c.lookups.WithLabelValues(source).Inc()
}

// RecordStatus records a status reported to a caller.
func (c *Collector) RecordStatus(status string) {
	if c == nil {
		return
	}
	c.statusQueries.WithLabelValues(status).Inc()
}

// SetResident sets the number of jobs held in memory.
func (c *Collector) SetResident(n int) {
	if c == nil {
		return
	}
	c.residentJobs.Set(float64(n))
}
