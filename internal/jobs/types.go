package jobs

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	DefaultQueue  = "analysis"
	MaxJobRetries = 1
	JobKind       = "analysis_job"
)

// ProcessJobArgs is stored in river_job.args. Only the id travels through the
// queue; the job row stays the source of truth.
type ProcessJobArgs struct {
	JobID string `json:"job_id"`
}

func (ProcessJobArgs) Kind() string {
	return JobKind
}

// InsertOpts deduplicates triggers for a job id that is still queued or
// being worked.
func (ProcessJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
