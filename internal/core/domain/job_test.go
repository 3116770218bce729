package domain

import (
	"testing"
	"time"
)

func TestCanTransition_ForwardOnly(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobStatusQueued, JobStatusPolling},
		{JobStatusPolling, JobStatusRetrieving},
		{JobStatusRetrieving, JobStatusFormatting},
		{JobStatusFormatting, JobStatusCompleted},
		{JobStatusQueued, JobStatusFailed},
		{JobStatusPolling, JobStatusFailed},
		{JobStatusRetrieving, JobStatusFailed},
		{JobStatusFormatting, JobStatusFailed},
		// forward jumps are monotonic and therefore allowed
		{JobStatusQueued, JobStatusRetrieving},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to JobStatus }{
		{JobStatusFormatting, JobStatusPolling},
		{JobStatusRetrieving, JobStatusQueued},
		{JobStatusPolling, JobStatusQueued},
		{JobStatusCompleted, JobStatusFailed},
		{JobStatusCompleted, JobStatusPolling},
		{JobStatusFailed, JobStatusQueued},
		{JobStatusFailed, JobStatusFailed},
		{JobStatusCompleted, JobStatusCompleted},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestCanTransition_HeartbeatSameStatus(t *testing.T) {
	for _, s := range ActiveJobStatuses {
		if !CanTransition(s, s) {
			t.Errorf("expected heartbeat %s -> %s to be allowed", s, s)
		}
	}
}

func TestJob_Apply_BumpsUpdatedAt(t *testing.T) {
	job := NewJob("thread-1", "msg-1", "what is deep mode?", "task-ext-1", AnswerMetadata{Version: AnswerMetadataVersion})
	before := job.UpdatedAt

	later := before.Add(30 * time.Second)
	status := JobStatusPolling
	if err := job.Apply(JobUpdate{Status: &status}, later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != JobStatusPolling {
		t.Errorf("expected status polling, got %s", job.Status)
	}
	if !job.UpdatedAt.Equal(later) {
		t.Errorf("expected updated_at to be bumped")
	}

	// Heartbeat: same status, no other fields, still bumps updated_at.
	evenLater := later.Add(5 * time.Second)
	if err := job.Apply(JobUpdate{Status: &status}, evenLater); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if !job.UpdatedAt.Equal(evenLater) {
		t.Errorf("expected heartbeat to refresh updated_at")
	}
}

func TestJob_Apply_RejectsRegression(t *testing.T) {
	job := NewJob("thread-1", "msg-1", "q", "ext-1", AnswerMetadata{})
	now := time.Now()

	formatting := JobStatusFormatting
	if err := job.Apply(JobUpdate{Status: &formatting}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	polling := JobStatusPolling
	if err := job.Apply(JobUpdate{Status: &polling}, now); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Status != JobStatusFormatting {
		t.Errorf("status mutated on rejected transition: %s", job.Status)
	}
}

func TestJob_Apply_TerminalImmutable(t *testing.T) {
	job := NewJob("thread-1", "msg-1", "q", "ext-1", AnswerMetadata{})
	now := time.Now()

	failed := JobStatusFailed
	if err := job.Apply(JobUpdate{Status: &failed}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	polling := JobStatusPolling
	if err := job.Apply(JobUpdate{Status: &polling}, now); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition out of failed, got %v", err)
	}
}

func TestJob_Stuck_BoundaryExclusive(t *testing.T) {
	now := time.Now()
	job := NewJob("thread-1", "msg-1", "q", "ext-1", AnswerMetadata{})
	job.Status = JobStatusPolling

	// Updated 41 minutes ago with a 40 minute threshold: stuck.
	job.UpdatedAt = now.Add(-41 * time.Minute)
	if !job.Stuck(now.Add(-40 * time.Minute)) {
		t.Error("expected job updated 41m ago to be stuck at 40m cutoff")
	}

	// Updated 1 second ago: not stuck.
	job.UpdatedAt = now.Add(-time.Second)
	if job.Stuck(now.Add(-40 * time.Minute)) {
		t.Error("expected recently updated job not to be stuck")
	}

	// Updated exactly at the cutoff: not stuck.
	cutoff := now.Add(-40 * time.Minute)
	job.UpdatedAt = cutoff
	if job.Stuck(cutoff) {
		t.Error("expected job updated exactly at cutoff not to be stuck")
	}

	// Terminal jobs are never stuck.
	job.Status = JobStatusFailed
	job.UpdatedAt = now.Add(-2 * time.Hour)
	if job.Stuck(now.Add(-40 * time.Minute)) {
		t.Error("expected terminal job not to be stuck")
	}
}
