// internal/process/job.go
package process

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of one thumbnail generation.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks a single derive-and-store cycle so that callers can tell which
// thumbnails of a save succeeded and which did not.
type Job struct {
	ID         string
	Kind       string
	Name       string
	Status     JobStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewJob(kind, name string) *Job {
	return &Job{
		ID:     uuid.NewString(),
		Kind:   kind,
		Name:   name,
		Status: JobStatusPending,
	}
}

func MarkRunning(j *Job) {
	j.Status = JobStatusRunning
	j.StartedAt = time.Now()
}

func MarkSucceeded(j *Job) {
	j.Status = JobStatusSucceeded
	j.FinishedAt = time.Now()
}

func MarkFailed(j *Job, err error) {
	j.Status = JobStatusFailed
	j.FinishedAt = time.Now()
	if err != nil {
		j.Error = err.Error()
	}
}

// Duration is the wall time between MarkRunning and the final mark, or zero
// while the job has not finished.
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Done reports whether the job reached a final state.
func (j *Job) Done() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
