package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven/mocks"
)

// Mock services for testing

type mockQueryService struct {
	submitFn    func(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error)
	jobStatusFn func(ctx context.Context, jobID string) (*domain.JobStatusResponse, error)
	jobResultFn func(ctx context.Context, jobID string) (*domain.JobResultResponse, error)
	listJobsFn  func(ctx context.Context, activeOnly bool) ([]*domain.Job, error)
}

func (m *mockQueryService) Submit(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQueryService) JobStatus(ctx context.Context, jobID string) (*domain.JobStatusResponse, error) {
	if m.jobStatusFn != nil {
		return m.jobStatusFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQueryService) JobResult(ctx context.Context, jobID string) (*domain.JobResultResponse, error) {
	if m.jobResultFn != nil {
		return m.jobResultFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQueryService) ListJobs(ctx context.Context, activeOnly bool) ([]*domain.Job, error) {
	if m.listJobsFn != nil {
		return m.listJobsFn(ctx, activeOnly)
	}
	return nil, errors.New("not implemented")
}

type mockRecoveryService struct {
	result *domain.RecoveryResult
	err    error
}

func (m *mockRecoveryService) RecoverStuckJobs(ctx context.Context) (*domain.RecoveryResult, error) {
	return m.result, m.err
}

// pingStub is a Pinger with a fixed outcome.
type pingStub struct {
	err error
}

func (p *pingStub) Ping(ctx context.Context) error {
	return p.err
}

type serverFixture struct {
	server   *Server
	query    *mockQueryService
	recovery *mockRecoveryService
	registry *mocks.MockDomainRegistry
	queue    *mocks.MockTaskQueue
	db       *pingStub
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		query: &mockQueryService{},
		recovery: &mockRecoveryService{
			result: &domain.RecoveryResult{RecoveredJobIDs: []string{}},
		},
		registry: mocks.NewMockDomainRegistry(domain.DomainConfig{
			ID:       "mutual-funds",
			Name:     "Mutual Funds",
			Keywords: []string{"mutual fund", "sip"},
		}),
		queue: mocks.NewMockTaskQueue(),
		db:    &pingStub{},
	}

	f.server = NewServer(DefaultConfig(), f.query, f.recovery, f.registry, f.queue, f.db, nil)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestHandleReady(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	f := newServerFixture(t)
	f.db.err = errors.New("connection refused")

	rec := f.do(t, "GET", "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/version", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	body := decodeBody[map[string]string](t, rec)
	if body["version"] != "dev" {
		t.Errorf("expected version dev, got %q", body["version"])
	}
}

func TestHandleSubmitQuery(t *testing.T) {
	f := newServerFixture(t)
	f.query.submitFn = func(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error) {
		if req.Question != "what is a sip" {
			t.Errorf("unexpected question: %q", req.Question)
		}
		return &domain.QueryResponse{
			ThreadID:       "thread-1",
			Status:         "completed",
			Answer:         "A SIP is a systematic investment plan.",
			ResolvedDomain: "mutual-funds",
			DomainStrategy: domain.StrategyKeywordMatch,
		}, nil
	}

	rec := f.do(t, "POST", "/api/v1/queries", `{"question": "what is a sip"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[domain.QueryResponse](t, rec)
	if resp.ThreadID != "thread-1" {
		t.Errorf("unexpected thread id: %q", resp.ThreadID)
	}
	if resp.ResolvedDomain != "mutual-funds" {
		t.Errorf("unexpected domain: %q", resp.ResolvedDomain)
	}
}

func TestHandleSubmitQuery_InvalidBody(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "POST", "/api/v1/queries", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSubmitQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unknown thread", domain.ErrNotFound, http.StatusNotFound},
		{"engine down", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newServerFixture(t)
			f.query.submitFn = func(ctx context.Context, req domain.SubmitQueryRequest) (*domain.QueryResponse, error) {
				return nil, tc.err
			}

			rec := f.do(t, "POST", "/api/v1/queries", `{"question": "q"}`)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHandleJobStatus(t *testing.T) {
	f := newServerFixture(t)
	f.query.jobStatusFn = func(ctx context.Context, jobID string) (*domain.JobStatusResponse, error) {
		if jobID != "job-1" {
			t.Errorf("unexpected job id: %q", jobID)
		}
		return &domain.JobStatusResponse{
			JobID:  "job-1",
			Status: domain.JobStatusPolling,
		}, nil
	}

	rec := f.do(t, "GET", "/api/v1/jobs/job-1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody[domain.JobStatusResponse](t, rec)
	if resp.Status != domain.JobStatusPolling {
		t.Errorf("unexpected status: %s", resp.Status)
	}
}

func TestHandleJobStatus_NotFound(t *testing.T) {
	f := newServerFixture(t)
	f.query.jobStatusFn = func(ctx context.Context, jobID string) (*domain.JobStatusResponse, error) {
		return nil, domain.ErrNotFound
	}

	rec := f.do(t, "GET", "/api/v1/jobs/missing/status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleJobResult(t *testing.T) {
	f := newServerFixture(t)
	f.query.jobResultFn = func(ctx context.Context, jobID string) (*domain.JobResultResponse, error) {
		return &domain.JobResultResponse{
			JobID:   jobID,
			Content: "final answer",
		}, nil
	}

	rec := f.do(t, "GET", "/api/v1/jobs/job-1/result", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody[domain.JobResultResponse](t, rec)
	if resp.Content != "final answer" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
}

func TestHandleJobResult_NotCompleted(t *testing.T) {
	f := newServerFixture(t)
	f.query.jobResultFn = func(ctx context.Context, jobID string) (*domain.JobResultResponse, error) {
		return nil, domain.ErrJobNotCompleted
	}

	rec := f.do(t, "GET", "/api/v1/jobs/job-1/result", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestHandleJobResult_NotFound(t *testing.T) {
	f := newServerFixture(t)
	f.query.jobResultFn = func(ctx context.Context, jobID string) (*domain.JobResultResponse, error) {
		return nil, domain.ErrNotFound
	}

	rec := f.do(t, "GET", "/api/v1/jobs/missing/result", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleListJobs(t *testing.T) {
	f := newServerFixture(t)
	f.query.listJobsFn = func(ctx context.Context, activeOnly bool) ([]*domain.Job, error) {
		if !activeOnly {
			t.Error("expected activeOnly for ?active=true")
		}
		return []*domain.Job{{ID: "job-1"}}, nil
	}

	rec := f.do(t, "GET", "/api/v1/jobs?active=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	jobs := decodeBody[[]*domain.Job](t, rec)
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Errorf("unexpected jobs: %+v", jobs)
	}
}

func TestHandleListJobs_EmptyIsArray(t *testing.T) {
	f := newServerFixture(t)
	f.query.listJobsFn = func(ctx context.Context, activeOnly bool) ([]*domain.Job, error) {
		return nil, nil
	}

	rec := f.do(t, "GET", "/api/v1/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[") {
		t.Errorf("expected JSON array, got %q", rec.Body.String())
	}
}

func TestHandleRecoverJobs(t *testing.T) {
	f := newServerFixture(t)
	f.recovery.result = &domain.RecoveryResult{
		RecoveredCount:  2,
		RecoveredJobIDs: []string{"job-1", "job-2"},
	}

	rec := f.do(t, "POST", "/api/v1/jobs/recover", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decodeBody[domain.RecoveryResult](t, rec)
	if resp.RecoveredCount != 2 {
		t.Errorf("expected 2 recovered, got %d", resp.RecoveredCount)
	}
}

func TestHandleRecoverJobs_Error(t *testing.T) {
	f := newServerFixture(t)
	f.recovery.result = nil
	f.recovery.err = errors.New("store down")

	rec := f.do(t, "POST", "/api/v1/jobs/recover", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleListDomains(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/api/v1/domains", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	configs := decodeBody[[]domain.DomainConfig](t, rec)
	if len(configs) != 2 {
		t.Fatalf("expected 2 domains (configured + default), got %d", len(configs))
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
