package job_test

import (
	"errors"
	"testing"

	"mediaq/internal/job"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to job.Status
		want     bool
	}{
		{job.StatusReady, job.StatusWorking, true},
		{job.StatusReady, job.StatusCompleted, false},
		{job.StatusWorking, job.StatusCompleted, true},
		{job.StatusWorking, job.StatusFailed, true},
		{job.StatusWorking, job.StatusCancelled, true},
		{job.StatusWorking, job.StatusReady, false},
		{job.StatusCompleted, job.StatusReady, false},
		{job.StatusFailed, job.StatusReady, true},
		{job.StatusCancelled, job.StatusReady, true},
	}
	for _, tc := range tests {
		if got := job.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobLocksOnceWorking(t *testing.T) {
	j := job.New("/in/a.mkv", "/out/a.mp4", nil, nil)
	if err := j.SetDestination("/out/b.mp4"); err != nil {
		t.Fatalf("SetDestination on ready job: %v", err)
	}
	if err := j.MarkWorking(); err != nil {
		t.Fatalf("MarkWorking: %v", err)
	}
	if err := j.SetDestination("/out/c.mp4"); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("SetDestination on working job error = %v", err)
	}
	if err := j.AppendAction(&job.Optimize{}); !errors.Is(err, job.ErrJobLocked) {
		t.Fatalf("AppendAction on working job error = %v", err)
	}
	if err := j.Reset(); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("Reset on working job error = %v", err)
	}

	if err := j.MarkFailed(errors.New("disk on fire")); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if j.ErrorMessage() != "disk on fire" {
		t.Fatalf("error message = %q", j.ErrorMessage())
	}
	if err := j.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if j.Status() != job.StatusReady || j.ErrorMessage() != "" {
		t.Fatalf("after reset: %s %q", j.Status(), j.ErrorMessage())
	}
	if j.Destination() != "/out/b.mp4" {
		t.Fatalf("destination = %q", j.Destination())
	}
}

func TestFromRecordDefaultsUnknownStatus(t *testing.T) {
	j := job.FromRecord(job.Record{ID: "x", Source: "/a", Status: "exploded"})
	if j.Status() != job.StatusReady {
		t.Fatalf("status = %s", j.Status())
	}
	r := j.Record()
	if r.ID != "x" || r.Attributes == nil {
		t.Fatalf("record = %+v", r)
	}
}
