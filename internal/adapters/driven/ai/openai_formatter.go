package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Ensure OpenAIFormatter implements FormatterService
var _ driven.FormatterService = (*OpenAIFormatter)(nil)

const formatterSystemPrompt = `You rewrite raw answers from a knowledge engine into clean,
well-structured responses. Preserve every fact, figure and caveat from the raw text.
Do not add information that is not present in it.`

// OpenAIFormatter implements FormatterService using OpenAI's chat completions API
type OpenAIFormatter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIFormatter creates a new OpenAI-backed formatter
func NewOpenAIFormatter(apiKey, model, baseURL string) (driven.FormatterService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIFormatter{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// chatRequest is the request body for OpenAI chat completions
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from OpenAI chat completions
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Format produces a cleaned answer from the raw text. The question and
// resolved domain give the model context for structuring the response.
func (f *OpenAIFormatter) Format(ctx context.Context, rawText, question, domainContext string) (string, error) {
	var user strings.Builder
	user.WriteString("Question: ")
	user.WriteString(question)
	if domainContext != "" {
		user.WriteString("\nDomain: ")
		user.WriteString(domainContext)
	}
	user.WriteString("\n\nRaw answer:\n")
	user.WriteString(rawText)

	reqBody := chatRequest{
		Model: f.model,
		Messages: []chatMessage{
			{Role: "system", Content: formatterSystemPrompt},
			{Role: "user", Content: user.String()},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status %d", resp.StatusCode)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// Close releases resources held by the formatter
func (f *OpenAIFormatter) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
