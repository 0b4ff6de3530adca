package v1

const (
	StatusTriggered = "triggered"
	StatusError     = "error"
	StatusOK        = "ok"
)

func StringToJobStatus(s string) JobStatus {
	switch s {
	case string(JobStatusRunning):
		return JobStatusRunning
	case string(JobStatusDone):
		return JobStatusDone
	case string(JobStatusError):
		return JobStatusError
	default:
		return JobStatusPending
	}
}
