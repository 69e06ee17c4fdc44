// Package metrics defines the prometheus collectors updated by the worker
// and exported on cmd/worker's /metrics: promauto-constructed counters,
// gauges and a histogram registered at package init, labeled by verdict
// and language where relevant.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts processed submissions by language and verdict.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_submissions_total",
			Help: "Total number of submissions judged",
		},
		[]string{"language", "verdict"},
	)

	// SubmissionDuration tracks end-to-end pipeline duration in seconds.
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_submission_duration_seconds",
			Help:    "Duration of the stage/compile/run/classify pipeline",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"language"},
	)

	// WorkersActive tracks currently busy worker goroutines.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judge_workers_active",
			Help: "Number of worker goroutines currently processing a submission",
		},
	)

	// BoxIDsOutstanding tracks how many box-ids are currently allocated.
	BoxIDsOutstanding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judge_box_ids_outstanding",
			Help: "Number of box-ids currently allocated to in-flight sandboxes",
		},
	)

	// SandboxFailures counts sandbox infrastructure failures (BoxError /
	// InternalError verdicts), distinct from user-code failures.
	SandboxFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_sandbox_failures_total",
			Help: "Total number of sandbox infrastructure failures",
		},
	)

	// QueuePullErrors counts transient durable-queue pull errors.
	QueuePullErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_queue_pull_errors_total",
			Help: "Total number of errors pulling from the durable queue",
		},
	)
)
