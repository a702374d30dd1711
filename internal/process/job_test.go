package process

import (
	"errors"
	"testing"
)

func TestNewJobIsPending(t *testing.T) {
	job := NewJob("thumbnail", "small")

	if job.Kind != "thumbnail" || job.Name != "small" {
		t.Fatalf("unexpected job identity: %+v", job)
	}
	if job.ID == "" {
		t.Fatal("job id not assigned")
	}
	if job.Status != JobStatusPending || job.Done() {
		t.Fatalf("new job should be pending: %v", job.Status)
	}
	if other := NewJob("thumbnail", "small"); other.ID == job.ID {
		t.Fatal("job ids must be unique")
	}
}

func TestMarkSucceededRecordsDuration(t *testing.T) {
	job := NewJob("thumbnail", "large")
	MarkRunning(job)
	if job.Duration() != 0 {
		t.Fatal("running job should not report a duration")
	}
	MarkSucceeded(job)

	if job.Status != JobStatusSucceeded || !job.Done() {
		t.Fatalf("job status not succeeded: %v", job.Status)
	}
	if job.Duration() < 0 {
		t.Fatalf("negative duration: %v", job.Duration())
	}
}

func TestMarkFailedSetsStatusAndError(t *testing.T) {
	job := NewJob("thumbnail", "job-2")
	MarkRunning(job)
	MarkFailed(job, errors.New("boom"))

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error != "boom" {
		t.Fatalf("job error not recorded: %q", job.Error)
	}
}

func TestMarkFailedDoesNotOverwriteErrorWhenNil(t *testing.T) {
	job := NewJob("thumbnail", "job-3")
	MarkFailed(job, nil)

	if job.Status != JobStatusFailed {
		t.Fatalf("job status not failed: %v", job.Status)
	}
	if job.Error != "" {
		t.Fatalf("expected empty error string, got %q", job.Error)
	}
}
