package service

import (
	"fmt"
)

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id string) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

// FailureKind classifies the step of a job execution that failed. It prefixes
// the error message persisted on the job.
type FailureKind string

const (
	KindClaim        FailureKind = "ClaimError"
	KindMissingInput FailureKind = "MissingInput"
	KindDownload     FailureKind = "DownloadError"
	KindParse        FailureKind = "ParseError"
	KindColumnConfig FailureKind = "ColumnConfigError"
	KindHandler      FailureKind = "HandlerError"
	KindPersist      FailureKind = "PersistError"
)

// ErrJobFailed is a failure of a single execution step, recorded on the job.
type ErrJobFailed struct {
	Kind FailureKind
	Err  error
}

func NewErrJobFailed(kind FailureKind, err error) *ErrJobFailed {
	return &ErrJobFailed{Kind: kind, Err: err}
}

func (e *ErrJobFailed) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *ErrJobFailed) Unwrap() error {
	return e.Err
}

// ErrFailureNotRecorded is returned when the failure of a job could not be
// written back to the store. The job is left in its previous status.
type ErrFailureNotRecorded struct {
	error
	JobID string
}

func NewErrFailureNotRecorded(jobID string, cause *ErrJobFailed, writeErr error) *ErrFailureNotRecorded {
	return &ErrFailureNotRecorded{
		error: fmt.Errorf("recording failure of job %s (%s): %w", jobID, cause, writeErr),
		JobID: jobID,
	}
}

func (e *ErrFailureNotRecorded) Unwrap() error {
	return e.error
}
