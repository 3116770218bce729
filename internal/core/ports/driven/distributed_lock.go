package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates maintenance work across instances so that
// periodic cleanup runs once per interval, not once per instance.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL-based
	// implementations auto-expire anyway.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Not all implementations support extension.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy
	Ping(ctx context.Context) error
}
