package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// CandidatesEvaluated counts pool members by how ranking treated them:
	// ranked, inactive, service_mismatch, malformed or unavailable.
	CandidatesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_evaluated_total",
			Help: "Candidates seen by the ranker, by outcome",
		},
		[]string{"outcome"},
	)

	TopMatchScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_top_score",
			Help:    "Total score of the top ranked provider",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"service_type"},
	)

	EmptyMatchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_empty_results_total",
			Help: "Ranking calls that produced no available provider",
		},
		[]string{"service_type"},
	)

	CandidatePoolSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_pool_fetch_total",
			Help: "Candidate pool fetches by source",
		},
		[]string{"source"},
	)

	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Per-provider reservation attempts by result",
		},
		[]string{"result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "No-match notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)
