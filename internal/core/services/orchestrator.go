package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driving"
	"github.com/clearfield-labs/inquiry-core/internal/runtime"
)

const (
	// defaultPollInterval is how often an in-flight completion task is
	// polled. Deep completions run for minutes; a fixed short interval
	// keeps heartbeats fresh without hammering the upstream.
	defaultPollInterval = 5 * time.Second

	// defaultPollTimeout bounds one job's polling phase. Kept under the
	// stuck-job threshold so a job always times out before it is treated
	// as abandoned.
	defaultPollTimeout = 35 * time.Minute

	// defaultStuckJobAge is how stale a non-terminal job's updated_at must
	// be before recovery declares it abandoned.
	defaultStuckJobAge = 40 * time.Minute

	// defaultHeartbeatLogEvery throttles the diagnostic "still polling" log
	// so a long-running job leaves a trace without flooding at poll rate.
	defaultHeartbeatLogEvery = time.Minute
)

// Orchestrator drives deep-mode jobs through their lifecycle: polling the
// external completion task, retrieving the raw answer, formatting it, and
// persisting the result. All progress is written to the job row; the row is
// the only channel back to callers.
type Orchestrator struct {
	jobs          driven.JobStore
	conversations driven.ConversationStore
	completion    driven.CompletionService
	registry      driven.DomainRegistry
	cache         *CacheService
	services      *runtime.Services
	logger        *slog.Logger

	pollInterval      time.Duration
	pollTimeout       time.Duration
	stuckJobAge       time.Duration
	heartbeatLogEvery time.Duration
	now               func() time.Time
}

var _ driving.RecoveryService = (*Orchestrator)(nil)

// NewOrchestrator creates a deep-mode job orchestrator.
func NewOrchestrator(
	jobs driven.JobStore,
	conversations driven.ConversationStore,
	completion driven.CompletionService,
	registry driven.DomainRegistry,
	cache *CacheService,
	services *runtime.Services,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:              jobs,
		conversations:     conversations,
		completion:        completion,
		registry:          registry,
		cache:             cache,
		services:          services,
		logger:            logger,
		pollInterval:      defaultPollInterval,
		pollTimeout:       defaultPollTimeout,
		stuckJobAge:       defaultStuckJobAge,
		heartbeatLogEvery: defaultHeartbeatLogEvery,
		now:               time.Now,
	}
}

// Run executes the pipeline for one job. It is safe to call on a job in any
// state: terminal jobs are skipped, which makes redelivered queue tasks
// harmless. Errors are recorded on the job row; the returned error exists
// for worker logging only.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		o.logger.Info("job already terminal, skipping", "job_id", job.ID, "status", job.Status)
		return nil
	}

	o.logger.Info("running deep job",
		"job_id", job.ID,
		"external_task_id", job.ExternalTaskID,
		"domain", job.Metadata.Domain,
	)

	raw, err := o.pollUntilDone(ctx, job)
	if err != nil {
		o.failJob(ctx, job, err)
		return err
	}

	if err := o.setStatus(ctx, job.ID, domain.JobStatusRetrieving, domain.JobUpdate{RawResponse: &raw}); err != nil {
		o.failJob(ctx, job, err)
		return err
	}
	o.updateMessage(ctx, job, domain.PlaceholderFinalizing, nil)

	if err := o.setStatus(ctx, job.ID, domain.JobStatusFormatting, domain.JobUpdate{}); err != nil {
		o.failJob(ctx, job, err)
		return err
	}
	formatted := o.format(ctx, raw, job)

	meta := domain.ParseAnswerMetadata(job.Metadata)
	meta.CompletionStatus = domain.CompletionStatusBackground
	meta.ExternalResponseID = job.ExternalTaskID

	if err := o.setStatus(ctx, job.ID, domain.JobStatusCompleted, domain.JobUpdate{
		FormattedResult: &formatted,
		Metadata:        &meta,
	}); err != nil {
		o.failJob(ctx, job, err)
		return err
	}
	o.updateMessage(ctx, job, formatted, &meta)

	// A refresh submission carried the superseded entry's id through the
	// job metadata; link the fresh answer back to it.
	var originalCacheID *string
	if meta.RefreshCache && meta.OriginalCacheID != "" {
		originalCacheID = &meta.OriginalCacheID
	}

	o.cache.Save(ctx, CacheSaveParams{
		Question:           job.Question,
		Mode:               meta.Mode,
		Response:           formatted,
		RawResponse:        raw,
		Metadata:           meta,
		ExternalResponseID: job.ExternalTaskID,
		IsDeepMode:         true,
		OriginalCacheID:    originalCacheID,
	})

	o.logger.Info("deep job completed", "job_id", job.ID)
	return nil
}

// RecoverStuckJobs fails non-terminal jobs whose heartbeat has gone stale,
// rewriting their placeholders with the timeout notice. Recovered jobs are
// terminal, so repeated passes are no-ops.
func (o *Orchestrator) RecoverStuckJobs(ctx context.Context) (*domain.RecoveryResult, error) {
	stuck, err := o.jobs.GetStuckJobs(ctx, o.stuckJobAge)
	if err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}

	result := &domain.RecoveryResult{}
	for _, job := range stuck {
		failed := domain.JobStatusFailed
		reason := fmt.Sprintf("abandoned: no progress for more than %s", o.stuckJobAge)
		meta := domain.ParseAnswerMetadata(job.Metadata)
		meta.CompletionStatus = domain.CompletionStatusTimedOut

		if err := o.jobs.UpdateStatus(ctx, job.ID, domain.JobUpdate{
			Status:   &failed,
			Error:    &reason,
			Metadata: &meta,
		}); err != nil {
			// Lost a race with the job's own worker; leave it alone.
			o.logger.Warn("skipping stuck job", "job_id", job.ID, "error", err)
			continue
		}
		o.updateMessage(ctx, job, domain.NoticeJobTimedOut, &meta)

		result.RecoveredCount++
		result.RecoveredJobIDs = append(result.RecoveredJobIDs, job.ID)
		o.logger.Info("recovered stuck job", "job_id", job.ID, "last_update", job.UpdatedAt)
	}
	return result, nil
}

// pollUntilDone polls the external completion task until it finishes,
// heartbeating the job's polling status on every tick.
func (o *Orchestrator) pollUntilDone(ctx context.Context, job *domain.Job) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.pollTimeout)
	defer cancel()

	if err := o.setStatus(ctx, job.ID, domain.JobStatusPolling, domain.JobUpdate{}); err != nil {
		return "", err
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	started := o.now()
	lastHeartbeatLog := started

	for {
		res, err := o.completion.Poll(ctx, job.ExternalTaskID)
		if err != nil {
			// Transient upstream errors are retried on the next tick.
			o.logger.Warn("poll failed", "job_id", job.ID, "error", err)
		} else {
			switch res.State {
			case driven.CompletionStateCompleted:
				return res.Answer, nil
			case driven.CompletionStateFailed:
				msg := res.Error
				if msg == "" {
					msg = "completion task failed"
				}
				return "", fmt.Errorf("external task %s: %s", job.ExternalTaskID, msg)
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("polling timed out after %s: %w", o.pollTimeout, ctx.Err())
		case <-ticker.C:
		}

		// Heartbeat so the recovery pass can tell in-flight from abandoned.
		if err := o.setStatus(ctx, job.ID, domain.JobStatusPolling, domain.JobUpdate{}); err != nil {
			return "", err
		}

		if now := o.now(); now.Sub(lastHeartbeatLog) >= o.heartbeatLogEvery {
			lastHeartbeatLog = now
			o.logger.Debug("still polling",
				"job_id", job.ID,
				"external_task_id", job.ExternalTaskID,
				"elapsed", now.Sub(started).Round(time.Second),
			)
		}
	}
}

// format runs the secondary formatting model, falling back to the raw
// answer whenever formatting is impossible or fails.
func (o *Orchestrator) format(ctx context.Context, raw string, job *domain.Job) string {
	formatter := o.services.FormatterService()
	if formatter == nil {
		o.logger.Debug("formatter unavailable, serving raw answer", "job_id", job.ID)
		return raw
	}

	domainContext := ""
	for _, cfg := range o.registry.List() {
		if cfg.ID == job.Metadata.Domain {
			domainContext = cfg.Description
			break
		}
	}

	formatted, err := formatter.Format(ctx, raw, job.Question, domainContext)
	if err != nil || formatted == "" {
		o.logger.Warn("formatting failed, serving raw answer", "job_id", job.ID, "error", err)
		return raw
	}
	return formatted
}

func (o *Orchestrator) setStatus(ctx context.Context, jobID string, status domain.JobStatus, upd domain.JobUpdate) error {
	upd.Status = &status
	return o.jobs.UpdateStatus(ctx, jobID, upd)
}

// failJob records the failure on the job row and rewrites the placeholder
// with the user-facing notice. Best effort on a best-effort path.
func (o *Orchestrator) failJob(ctx context.Context, job *domain.Job, cause error) {
	o.logger.Error("deep job failed", "job_id", job.ID, "error", cause)

	failed := domain.JobStatusFailed
	reason := cause.Error()
	meta := domain.ParseAnswerMetadata(job.Metadata)
	meta.CompletionStatus = domain.CompletionStatusError
	notice := domain.NoticeJobFailed
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		meta.CompletionStatus = domain.CompletionStatusTimedOut
		notice = domain.NoticeJobTimedOut
	}

	// The surrounding context may already be dead; give the terminal write
	// its own deadline so the failure is never lost to cancellation.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.jobs.UpdateStatus(wctx, job.ID, domain.JobUpdate{
		Status:   &failed,
		Error:    &reason,
		Metadata: &meta,
	}); err != nil {
		o.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
	}
	o.updateMessage(wctx, job, notice, &meta)
}

// updateMessage rewrites the job's placeholder assistant message. Message
// updates are presentation only and never fail the pipeline.
func (o *Orchestrator) updateMessage(ctx context.Context, job *domain.Job, content string, meta *domain.AnswerMetadata) {
	if job.MessageID == "" {
		return
	}
	msg, err := o.conversations.GetMessage(ctx, job.MessageID)
	if err != nil {
		o.logger.Warn("placeholder message missing", "job_id", job.ID, "message_id", job.MessageID, "error", err)
		return
	}
	msg.Content = content
	if meta != nil {
		msg.Metadata = *meta
	}
	if err := o.conversations.UpdateMessage(ctx, msg); err != nil {
		o.logger.Warn("failed to update placeholder message", "job_id", job.ID, "error", err)
	}
}
