package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	analysisJobs = "analysis_jobs"

	// Job metrics
	jobsProcessedTotal         = "processed_total"
	jobDurationSeconds         = "duration_seconds"
	progressWriteFailuresTotal = "progress_write_failures_total"
	StaleRunningJobs           = "stale_running_jobs"

	// Labels
	outcomeLabel = "outcome"
	jobTypeLabel = "job_type"
)

// Outcomes of a single Process call.
const (
	OutcomeDone             = "done"
	OutcomeError            = "error"
	OutcomeNotFound         = "not_found"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeUnrecorded       = "unrecorded"
)

/**
* Metrics definition
**/
var jobsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: analysisJobs,
		Name:      jobsProcessedTotal,
		Help:      "number of job executions partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var jobDurationSecondsMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: analysisJobs,
		Name:      jobDurationSeconds,
		Help:      "wall clock duration of job executions",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600},
	},
	[]string{jobTypeLabel},
)

var progressWriteFailuresTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: analysisJobs,
		Name:      progressWriteFailuresTotal,
		Help:      "number of progress updates lost after retries",
	},
)

var staleRunningJobsMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: analysisJobs,
		Name:      StaleRunningJobs,
		Help:      "number of running jobs not updated within the job timeout",
	},
)

func IncreaseJobsProcessedMetric(outcome string) {
	jobsProcessedTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func ObserveJobDuration(jobType string, d time.Duration) {
	jobDurationSecondsMetric.With(prometheus.Labels{jobTypeLabel: jobType}).Observe(d.Seconds())
}

func IncreaseProgressWriteFailuresMetric() {
	progressWriteFailuresTotalMetric.Inc()
}

func UpdateStaleRunningJobsMetric(count int64) {
	staleRunningJobsMetric.Set(float64(count))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsProcessedTotalMetric)
	prometheus.MustRegister(jobDurationSecondsMetric)
	prometheus.MustRegister(progressWriteFailuresTotalMetric)
	prometheus.MustRegister(staleRunningJobsMetric)
}
