// Package metrics defines the prometheus collectors of every service. Each
// process owns one registry so tests can build as many as they like.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "pixiescale"

type Metrics struct {
	Registry *prometheus.Registry

	TasksReceived   prometheus.Counter
	TasksCompleted  prometheus.Counter
	TasksFailed     *prometheus.CounterVec
	TasksActive     prometheus.Gauge
	TaskDuration    prometheus.Histogram
	JobsCreated     prometheus.Counter
	JobsTerminal    *prometheus.CounterVec
	StorageResults  *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		TasksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcoding_tasks_received_total",
			Help:      "Dispatch messages accepted by the worker.",
		}),
		TasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcoding_jobs_completed_total",
			Help:      "Tasks encoded successfully.",
		}),
		TasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcoding_jobs_failed_total",
			Help:      "Tasks that ended in failure.",
		}, []string{"reason"}),
		TasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcoding_tasks_active",
			Help:      "Encodes currently running.",
		}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcoding_processing_seconds",
			Help:      "Wall time of a single encode.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		JobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Jobs accepted by the orchestrator.",
		}),
		JobsTerminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_terminal_total",
			Help:      "Jobs that reached a terminal status.",
		}, []string{"status"}),
		StorageResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_results_total",
			Help:      "Outputs handled by the storage finalizer.",
		}, []string{"success"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Publish attempts by topic and outcome.",
		}, []string{"topic", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TasksReceived,
		m.TasksCompleted,
		m.TasksFailed,
		m.TasksActive,
		m.TaskDuration,
		m.JobsCreated,
		m.JobsTerminal,
		m.StorageResults,
		m.EventsPublished,
		m.HTTPRequests,
	)
	return m
}
