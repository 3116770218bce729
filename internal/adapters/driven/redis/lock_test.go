package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
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

	return client, mr
}

func TestNewLock(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)

	if lock == nil {
		t.Fatal("expected non-nil lock")
	}
	if lock.ownerID == "" {
		t.Error("expected non-empty owner ID")
	}
}

func TestLock_OwnerID_Unique(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if lock1.OwnerID() == lock2.OwnerID() {
		t.Errorf("expected unique owner IDs, got same: %s", lock1.OwnerID())
	}
}

func TestLock_Acquire_Success(t *testing.T) {
	client, mr := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}
	if !mr.Exists("inquiry:lock:janitor") {
		t.Error("expected lock key under the inquiry:lock: prefix")
	}
}

func TestLock_Acquire_AlreadyHeld(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected first lock to acquire")
	}

	// Second instance cannot acquire
	acquired, err = lock2.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second lock to fail")
	}
}

func TestLock_Acquire_NotReentrant(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	// Same instance cannot re-acquire
	acquired, err = lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected reentrant acquire to fail")
	}
}

func TestLock_Release_Success(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	if err := lock.Release(ctx, "janitor"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}

	// Should be able to acquire again
	acquired, err = lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock after release")
	}
}

func TestLock_Release_NotHeld(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	// Release without acquire should not error
	if err := lock.Release(ctx, "janitor"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}
}

func TestLock_Release_ByDifferentOwner(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	// A different owner releasing is a no-op
	if err := lock2.Release(ctx, "janitor"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired, err = lock2.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected lock to still be held by lock1")
	}
}

func TestLock_Acquire_AfterExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "janitor", 1*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	mr.FastForward(2 * time.Second)

	acquired, err = lock2.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock after TTL expiry")
	}
}

func TestLock_Extend_Success(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", 1*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	if err := lock.Extend(ctx, "janitor", 10*time.Second); err != nil {
		t.Fatalf("unexpected error on extend: %v", err)
	}
}

func TestLock_Extend_NotHeld(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	if err := lock.Extend(ctx, "janitor", 10*time.Second); err == nil {
		t.Error("expected error when extending unheld lock")
	}
}

func TestLock_Extend_ByDifferentOwner(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock")
	}

	if err := lock2.Extend(ctx, "janitor", 20*time.Second); err == nil {
		t.Error("expected error when different owner tries to extend")
	}
}

func TestLock_Ping(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}

func TestLock_DifferentLockNames(t *testing.T) {
	client, _ := setupTestRedis(t)

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire janitor lock")
	}

	// An unrelated name is independent
	acquired, err = lock.Acquire(ctx, "registry-refresh", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire registry-refresh lock")
	}
}
