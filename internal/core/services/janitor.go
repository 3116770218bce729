package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driving"
)

const janitorLockKey = "janitor"

// Janitor runs periodic maintenance on worker nodes: stuck-job recovery,
// terminal job retention, cache retention, and domain registry refresh.
//
// For multi-worker deployments, configure a DistributedLock so only one
// instance runs a maintenance cycle at a time.
type Janitor struct {
	jobs     driven.JobStore
	cache    *CacheService
	registry driven.DomainRegistry
	recovery driving.RecoveryService
	lock     driven.DistributedLock
	logger   *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval      time.Duration
	lockTTL       time.Duration
	jobRetention  time.Duration
	cacheMaxAge   time.Duration
	registryStale time.Duration
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	Jobs     driven.JobStore
	Cache    *CacheService
	Registry driven.DomainRegistry
	Recovery driving.RecoveryService
	Lock     driven.DistributedLock // Optional: multi-instance coordination
	Logger   *slog.Logger

	Interval      time.Duration // How often to run a cycle (default: 5m)
	LockTTL       time.Duration // TTL for the distributed lock (default: 2x interval)
	JobRetention  time.Duration // How long terminal jobs are kept (default: 1h)
	CacheMaxAge   time.Duration // How long unaccessed cache entries are kept (default: 30d)
	RegistryStale time.Duration // How old the registry snapshot may get (default: 15m)
}

// NewJanitor creates a new maintenance janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 5 * time.Minute
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}
	jobRetention := cfg.JobRetention
	if jobRetention == 0 {
		jobRetention = time.Hour
	}
	cacheMaxAge := cfg.CacheMaxAge
	if cacheMaxAge == 0 {
		cacheMaxAge = 30 * 24 * time.Hour
	}
	registryStale := cfg.RegistryStale
	if registryStale == 0 {
		registryStale = 15 * time.Minute
	}

	return &Janitor{
		jobs:          cfg.Jobs,
		cache:         cfg.Cache,
		registry:      cfg.Registry,
		recovery:      cfg.Recovery,
		lock:          cfg.Lock,
		logger:        logger,
		interval:      interval,
		lockTTL:       lockTTL,
		jobRetention:  jobRetention,
		cacheMaxAge:   cacheMaxAge,
		registryStale: registryStale,
	}
}

// Start begins the janitor loop.
// It runs until Stop is called or the context is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "interval", j.interval)

	go j.run(ctx)

	return nil
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// run is the main janitor loop.
func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on start
	j.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.RunCycle(ctx)
		}
	}
}

// RunCycle executes one maintenance cycle. With a distributed lock
// configured, the cycle is skipped when another instance holds it.
func (j *Janitor) RunCycle(ctx context.Context) {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, janitorLockKey, j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := j.lock.Release(ctx, janitorLockKey); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	if j.recovery != nil {
		result, err := j.recovery.RecoverStuckJobs(ctx)
		if err != nil {
			j.logger.Error("stuck job recovery failed", "error", err)
		} else if result.RecoveredCount > 0 {
			j.logger.Info("recovered stuck jobs", "count", result.RecoveredCount)
		}
	}

	if j.jobs != nil {
		deleted, err := j.jobs.CleanupOldJobs(ctx, j.jobRetention)
		if err != nil {
			j.logger.Error("job cleanup failed", "error", err)
		} else if deleted > 0 {
			j.logger.Info("cleaned up terminal jobs", "count", deleted, "retention", j.jobRetention)
		}
	}

	if j.cache != nil {
		deleted, err := j.cache.Cleanup(ctx, j.cacheMaxAge)
		if err != nil {
			j.logger.Error("cache cleanup failed", "error", err)
		} else if deleted > 0 {
			j.logger.Info("cleaned up cache entries", "count", deleted, "max_age", j.cacheMaxAge)
		}
	}

	if j.registry != nil && time.Since(j.registry.LastSyncedAt()) > j.registryStale {
		if err := j.registry.Refresh(ctx); err != nil {
			j.logger.Warn("domain registry refresh failed", "error", err)
		}
	}
}
