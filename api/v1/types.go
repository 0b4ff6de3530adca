package v1

// TriggerRequest is the body of POST /trigger.
type TriggerRequest struct {
	JobID string `json:"jobId" validate:"required,job_id"`
}

type TriggerResponse struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}

type ErrorResponse struct {
	Error     string  `json:"error"`
	Status    string  `json:"status"`
	RequestID *string `json:"requestId,omitempty"`
}

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Job is the observable state of an analysis job.
type Job struct {
	JobID    string         `json:"jobId"`
	JobType  string         `json:"jobType"`
	Status   JobStatus      `json:"status"`
	Progress int            `json:"progress"`
	Result   map[string]any `json:"result,omitempty"`
	Error    *string        `json:"error,omitempty"`
}

type Health struct {
	Status string `json:"status"`
}
