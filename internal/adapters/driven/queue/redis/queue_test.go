package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

func setupTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q, mr
}

func TestNewQueue_RequiresClient(t *testing.T) {
	if _, err := NewQueue(nil, "w"); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewRunDeepJobTask("job-1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored task")
	}
	if stored.Status != domain.TaskStatusPending {
		t.Errorf("expected pending, got %s", stored.Status)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected processing, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
	if got.JobID() != "job-1" {
		t.Errorf("expected job_id job-1, got %s", got.JobID())
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	stored, err = q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task after ack failed: %v", err)
	}
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
}

func TestQueue_Enqueue_NilTask(t *testing.T) {
	q, _ := setupTestQueue(t)

	if err := q.Enqueue(context.Background(), nil); err == nil {
		t.Error("expected error for nil task")
	}
}

func TestQueue_Dequeue_Empty(t *testing.T) {
	q, _ := setupTestQueue(t)

	got, err := q.DequeueWithTimeout(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no task, got %s", got.ID)
	}
}

func TestQueue_Nack_SingleAttemptFails(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	// Deep-job tasks carry a single attempt; a nack moves them
	// straight to failed instead of rescheduling.
	task := domain.NewRunDeepJobTask("job-2")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := q.Nack(ctx, task.ID, "engine unreachable"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if stored.Error != "engine unreachable" {
		t.Errorf("expected error recorded, got %q", stored.Error)
	}
}

func TestQueue_Nack_RetriesWithBackoff(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeRunDeepJob, map[string]string{"job_id": "job-3"})
	task.MaxAttempts = 3
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := q.Nack(ctx, task.ID, "transient"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if stored.Status != domain.TaskStatusPending {
		t.Errorf("expected pending for retry, got %s", stored.Status)
	}
	if !stored.ScheduledFor.After(time.Now()) {
		t.Error("expected backoff to schedule the retry in the future")
	}
}

func TestQueue_Nack_UnknownTask(t *testing.T) {
	q, _ := setupTestQueue(t)

	err := q.Nack(context.Background(), "missing", "reason")
	if err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestQueue_ScheduledTaskPromotion(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	// Schedules are stored and promoted at whole-second granularity, so the
	// task must be scheduled full seconds out to be observably not-yet-due.
	task := domain.NewRunDeepJobTask("job-4")
	task.ScheduledFor = time.Now().Add(2 * time.Second)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// Not yet due
	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no task before schedule, got %s", got.ID)
	}

	time.Sleep(2100 * time.Millisecond)

	got, err = q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected promoted task after schedule passed")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
}

func TestQueue_GetTask_Missing(t *testing.T) {
	q, _ := setupTestQueue(t)

	got, err := q.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing task")
	}
}

func TestQueue_PurgeTasks(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	old := domain.NewRunDeepJobTask("job-old")
	old.Status = domain.TaskStatusCompleted
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	if err := q.Enqueue(ctx, old); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	fresh := domain.NewRunDeepJobTask("job-fresh")
	if err := q.Enqueue(ctx, fresh); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	purged, err := q.PurgeTasks(ctx, 3600)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}

	if got, _ := q.GetTask(ctx, old.ID); got != nil {
		t.Error("expected old task to be purged")
	}
	if got, _ := q.GetTask(ctx, fresh.ID); got == nil {
		t.Error("expected fresh task to survive purge")
	}
}

func TestQueue_Ping(t *testing.T) {
	q, mr := setupTestQueue(t)

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := q.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}
