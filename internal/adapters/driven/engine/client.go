package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Ensure Client implements CompletionService
var _ driven.CompletionService = (*Client)(nil)

// Client talks to the knowledge engine's REST API. Deep-mode questions
// are submitted async and come back as a task handle that is polled via
// the answer status endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an engine client for the given base URL.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// askRequest is the engine's answer request body
type askRequest struct {
	Question  string            `json:"question"`
	Domain    string            `json:"domain"`
	AsyncMode bool              `json:"async_mode,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
}

// askResponse is the engine's answer/status response body
type askResponse struct {
	ResponseID string         `json:"response_id"`
	Markdown   string         `json:"markdown"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Submit sends a question for answering. Deep mode is submitted async;
// the engine returns a task handle instead of an answer.
func (c *Client) Submit(ctx context.Context, question, domainID, mode string) (*driven.SubmitResult, error) {
	reqBody := askRequest{
		Question:  question,
		Domain:    domainID,
		AsyncMode: mode == domain.ModeDeep,
		Params:    map[string]string{"_mode": mode},
	}

	resp, err := c.post(ctx, "/v1/answer", reqBody)
	if err != nil {
		return nil, err
	}

	// Async submissions carry a task handle in the response metadata
	if taskID := resp.metaString("task_id"); taskID != "" {
		return &driven.SubmitResult{Async: true, TaskID: taskID}, nil
	}
	if taskID := resp.metaString("background_task_id"); taskID != "" {
		return &driven.SubmitResult{Async: true, TaskID: taskID}, nil
	}

	return &driven.SubmitResult{
		Answer:     resp.Markdown,
		ResponseID: resp.ResponseID,
	}, nil
}

// Poll checks the state of an async completion task.
func (c *Client) Poll(ctx context.Context, taskID string) (*driven.PollResult, error) {
	resp, err := c.get(ctx, "/v1/answer/status/"+taskID)
	if err != nil {
		return nil, err
	}

	switch resp.metaString("background_status") {
	case "completed":
		return &driven.PollResult{
			State:  driven.CompletionStateCompleted,
			Answer: resp.Markdown,
		}, nil
	case "failed":
		return &driven.PollResult{
			State: driven.CompletionStateFailed,
			Error: resp.Markdown,
		}, nil
	default:
		return &driven.PollResult{State: driven.CompletionStatePending}, nil
	}
}

func (c *Client) post(ctx context.Context, path string, body any) (*askResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*askResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*askResponse, error) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read engine response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var ask askResponse
	if err := json.Unmarshal(body, &ask); err != nil {
		return nil, fmt.Errorf("parse engine response: %w", err)
	}

	return &ask, nil
}

func (r *askResponse) metaString(key string) string {
	if r.Meta == nil {
		return ""
	}
	if v, ok := r.Meta[key].(string); ok {
		return v
	}
	return ""
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max])
}
