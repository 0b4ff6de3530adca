package mappers

import (
	api "github.com/patricesweeney/analysis-jobs/api/v1"
	"github.com/patricesweeney/analysis-jobs/internal/store/model"
)

func JobToApi(job *model.Job) api.Job {
	out := api.Job{
		JobID:    job.ID,
		JobType:  job.JobType,
		Status:   api.StringToJobStatus(string(job.Status)),
		Progress: job.Progress,
	}
	if job.Status == model.JobStatusDone && job.Result != nil {
		out.Result = job.Result.Data
	}
	if job.Status == model.JobStatusError {
		out.Error = job.ErrorMessage
	}
	return out
}
