// Package metrics defines and registers the custom Prometheus metrics of the
// innerpath daemon. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics register with the default registry on import via promauto;
// the control API exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "innerpath"

// ── Detached task metrics ─────────────────────────────────────────────────────

// TasksTotal counts detached tasks run by the dispatcher.
// Label:
//   - result: "ok", "error" or "panic"
var TasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_total",
		Help:      "Total number of detached tasks executed, by result.",
	},
	[]string{"result"},
)

// TaskQueueDepth tracks the number of tasks waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var TaskQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "task_queue_depth",
		Help:      "Current number of tasks pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// TaskDuration measures how long a detached task takes once dequeued.
var TaskDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Duration of detached tasks from dequeue to completion.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Sync metrics ──────────────────────────────────────────────────────────────

// SyncRunsTotal counts scheduled background syncs.
// Labels:
//   - job: "data" or "session"
//   - result: "ok", "error" or "skipped"
var SyncRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Total number of scheduled sync runs, by job and result.",
	},
	[]string{"job", "result"},
)

// SyncDuration measures each scheduled sync run.
var SyncDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Duration of scheduled sync runs.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	},
	[]string{"job"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionAuthenticated is 1 while the client holds a session, 0 otherwise.
var SessionAuthenticated = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_authenticated",
		Help:      "Whether the client currently holds an authenticated session.",
	},
)

// EmailRequestsTotal counts email workflow requests issued through the
// control API.
// Labels:
//   - workflow: "verification" or "password_reset"
//   - result: "ok" or "error"
var EmailRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_requests_total",
		Help:      "Total number of email workflow requests, by workflow and result.",
	},
	[]string{"workflow", "result"},
)
