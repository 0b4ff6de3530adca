package model

import (
	"encoding/json"
	"time"

	"github.com/patricesweeney/analysis-jobs/pkg/table"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Processable reports whether a job in this status may be claimed by a runner.
func (s JobStatus) Processable() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

const (
	ProgressClaimed = 10
	ProgressDone    = 100
)

// Job is a row of the jobs table. Rows are created by the upload flow; the
// runner only ever updates them.
type Job struct {
	ID            string                         `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt     time.Time                      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time                      `gorm:"autoUpdateTime;index:jobs_status_updated_at_idx,priority:2"`
	JobType       string                         `gorm:"not null;type:VARCHAR(100)"`
	InputFilePath *string                        `gorm:"type:TEXT"`
	Status        JobStatus                      `gorm:"not null;type:VARCHAR(20);default:pending;index:jobs_status_updated_at_idx,priority:1"`
	Progress      int                            `gorm:"not null;default:0"`
	Result        *JSONField[map[string]any]     `gorm:"type:jsonb"`
	ErrorMessage  *string                        `gorm:"type:TEXT"`
	ColumnConfig  *JSONField[table.ColumnConfig] `gorm:"type:jsonb"`
}

func (Job) TableName() string {
	return "jobs"
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// HasInput reports whether the job still references an uploaded file.
func (j Job) HasInput() bool {
	return j.InputFilePath != nil && *j.InputFilePath != ""
}
