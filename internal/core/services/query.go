package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driving"
)

// maxThreadTitleLen bounds titles derived from the first question.
const maxThreadTitleLen = 80

// QueryService accepts questions, routes them to a domain, consults the
// semantic cache, and either answers synchronously or launches a deep-mode
// job. It is the only driving service callers interact with for answers.
type QueryService struct {
	conversations driven.ConversationStore
	jobs          driven.JobStore
	queue         driven.TaskQueue
	completion    driven.CompletionService
	cache         *CacheService
	resolver      *Resolver
	logger        *slog.Logger

	now func() time.Time
}

var _ driving.QueryService = (*QueryService)(nil)

// NewQueryService creates a new query service.
func NewQueryService(
	conversations driven.ConversationStore,
	jobs driven.JobStore,
	queue driven.TaskQueue,
	completion driven.CompletionService,
	cache *CacheService,
	resolver *Resolver,
	logger *slog.Logger,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		conversations: conversations,
		jobs:          jobs,
		queue:         queue,
		completion:    completion,
		cache:         cache,
		resolver:      resolver,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit handles one question end to end. Cached and synchronous answers
// return completed; deep-mode questions return a job id to poll while a
// placeholder assistant message holds the thread position.
func (s *QueryService) Submit(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeBalanced
	}
	if !domain.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, req.Mode)
	}

	thread, err := s.ensureThread(ctx, req.ThreadID, question)
	if err != nil {
		return nil, err
	}

	userMsg := domain.NewMessage(thread.ID, domain.MessageRoleUser, question)
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	res := s.resolver.Resolve(question, thread.LastDomainID, req.Domain)
	meta := domain.NewAnswerMetadata(res, mode)
	meta.RefreshCache = req.RefreshCache

	s.logger.Info("question resolved",
		"thread_id", thread.ID,
		"domain", res.DomainID,
		"strategy", res.Strategy,
		"mode", mode,
	)

	// Cache consultation. A refresh request still searches, but only to
	// record lineage from the superseded entry to the fresh answer.
	var originalCacheID *string
	if match, _ := s.cache.FindSimilar(ctx, question, mode); match != nil {
		if !req.RefreshCache {
			return s.answerFromCache(ctx, thread, match, meta)
		}
		id := match.Entry.ID
		originalCacheID = &id
	}

	result, err := s.completion.Submit(ctx, question, res.DomainID, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: completion submit: %v", domain.ErrServiceUnavailable, err)
	}

	if result.Async {
		return s.launchDeepJob(ctx, thread, question, result.TaskID, meta, originalCacheID)
	}
	return s.answerSync(ctx, thread, question, mode, result, meta, originalCacheID)
}

// JobStatus reports the progress of a deep-mode job.
func (s *QueryService) JobStatus(ctx context.Context, jobID string) (*domain.JobStatusResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	resp := &domain.JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Completed: job.Status == domain.JobStatusCompleted,
		Failed:    job.Status == domain.JobStatusFailed,
		Error:     job.Error,
	}
	if resp.Completed {
		resp.CurrentContent = job.FormattedResult
	}
	return resp, nil
}

// JobResult returns the final persisted answer of a completed job.
func (s *QueryService) JobResult(ctx context.Context, jobID string) (*domain.JobResultResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job is %s", domain.ErrJobNotCompleted, job.Status)
	}
	return &domain.JobResultResponse{
		JobID:    job.ID,
		ThreadID: job.ThreadID,
		Content:  job.FormattedResult,
		Metadata: domain.ParseAnswerMetadata(job.Metadata),
	}, nil
}

// ListJobs returns jobs for the observability surface.
func (s *QueryService) ListJobs(ctx context.Context, activeOnly bool) ([]*domain.Job, error) {
	if activeOnly {
		return s.jobs.GetActiveJobs(ctx)
	}
	return s.jobs.GetAllJobs(ctx)
}

// ensureThread loads the requested thread or starts a new one titled after
// the first question.
func (s *QueryService) ensureThread(ctx context.Context, threadID, question string) (*domain.Thread, error) {
	if threadID != "" {
		thread, err := s.conversations.GetThread(ctx, threadID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
			}
			return nil, err
		}
		return thread, nil
	}

	thread := domain.NewThread(threadTitle(question))
	if err := s.conversations.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return thread, nil
}

func (s *QueryService) answerFromCache(ctx context.Context, thread *domain.Thread, match *domain.CacheMatch, meta domain.AnswerMetadata) (*domain.QueryResponse, error) {
	meta.CompletionStatus = domain.CompletionStatusCached
	meta.CacheSimilarity = match.Similarity
	meta.ExternalResponseID = match.Entry.ExternalResponseID

	msg := domain.NewMessage(thread.ID, domain.MessageRoleAssistant, match.Entry.Response)
	msg.Metadata = meta
	if err := s.conversations.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return &domain.QueryResponse{
		ThreadID:       thread.ID,
		Status:         string(domain.JobStatusCompleted),
		Answer:         match.Entry.Response,
		ResolvedDomain: meta.Domain,
		DomainStrategy: meta.Strategy,
		IsCached:       true,
	}, nil
}

func (s *QueryService) answerSync(ctx context.Context, thread *domain.Thread, question, mode string, result *driven.SubmitResult, meta domain.AnswerMetadata, originalCacheID *string) (*domain.QueryResponse, error) {
	meta.CompletionStatus = domain.CompletionStatusSync
	meta.ExternalResponseID = result.ResponseID

	msg := domain.NewMessage(thread.ID, domain.MessageRoleAssistant, result.Answer)
	msg.Metadata = meta
	if err := s.conversations.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	s.cache.Save(ctx, CacheSaveParams{
		Question:           question,
		Mode:               mode,
		Response:           result.Answer,
		Metadata:           meta,
		ExternalResponseID: result.ResponseID,
		OriginalCacheID:    originalCacheID,
	})

	return &domain.QueryResponse{
		ThreadID:       thread.ID,
		Status:         string(domain.JobStatusCompleted),
		Answer:         result.Answer,
		ResolvedDomain: meta.Domain,
		DomainStrategy: meta.Strategy,
	}, nil
}

// launchDeepJob persists the placeholder, the job row, and the queue task
// for an async completion. The job row is the only channel back to callers;
// nothing in the pipeline reports results any other way.
func (s *QueryService) launchDeepJob(ctx context.Context, thread *domain.Thread, question, externalTaskID string, meta domain.AnswerMetadata, originalCacheID *string) (*domain.QueryResponse, error) {
	meta.CompletionStatus = domain.CompletionStatusBackground
	if originalCacheID != nil {
		meta.RefreshCache = true
		meta.OriginalCacheID = *originalCacheID
	}

	placeholder := domain.NewMessage(thread.ID, domain.MessageRoleAssistant, domain.PlaceholderWorking)
	placeholder.Metadata = meta
	if err := s.conversations.AppendMessage(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("append placeholder message: %w", err)
	}

	job := domain.NewJob(thread.ID, placeholder.ID, question, externalTaskID, meta)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, domain.NewRunDeepJobTask(job.ID)); err != nil {
		// The job exists but nothing will drive it; fail it now so the
		// caller is not left polling forever.
		s.failJob(ctx, job, placeholder, fmt.Sprintf("enqueue failed: %v", err))
		return nil, fmt.Errorf("%w: enqueue deep job: %v", domain.ErrServiceUnavailable, err)
	}

	s.logger.Info("deep job launched",
		"job_id", job.ID,
		"thread_id", thread.ID,
		"external_task_id", externalTaskID,
	)

	return &domain.QueryResponse{
		ThreadID:       thread.ID,
		JobID:          job.ID,
		Status:         string(domain.JobStatusQueued),
		Answer:         domain.PlaceholderWorking,
		IsAsync:        true,
		ResolvedDomain: meta.Domain,
		DomainStrategy: meta.Strategy,
	}, nil
}

// failJob best-effort marks a job failed and rewrites its placeholder with
// the user-facing failure notice.
func (s *QueryService) failJob(ctx context.Context, job *domain.Job, placeholder *domain.Message, reason string) {
	failed := domain.JobStatusFailed
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobUpdate{Status: &failed, Error: &reason}); err != nil {
		s.logger.Error("failed to mark job failed", "job_id", job.ID, "error", err)
	}
	placeholder.Content = domain.NoticeJobFailed
	if err := s.conversations.UpdateMessage(ctx, placeholder); err != nil {
		s.logger.Error("failed to rewrite placeholder", "message_id", placeholder.ID, "error", err)
	}
}

// threadTitle derives a thread title from the first question.
func threadTitle(question string) string {
	if len(question) <= maxThreadTitleLen {
		return question
	}
	return question[:maxThreadTitleLen-3] + "..."
}
