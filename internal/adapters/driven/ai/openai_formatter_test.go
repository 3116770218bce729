package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIFormatter_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIFormatter("", "gpt-4o-mini", "")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNewOpenAIFormatter_Defaults(t *testing.T) {
	svc, err := NewOpenAIFormatter("sk-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := svc.(*OpenAIFormatter)
	if f.model != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", f.model)
	}
	if f.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %s", f.baseURL)
	}
}

func TestOpenAIFormatter_Format_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("expected Authorization header")
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected system+user messages, got %d", len(req.Messages))
		}
		if !strings.Contains(req.Messages[1].Content, "what is an expense ratio") {
			t.Error("expected question in user message")
		}
		if !strings.Contains(req.Messages[1].Content, "mutual funds") {
			t.Error("expected domain context in user message")
		}
		if !strings.Contains(req.Messages[1].Content, "raw engine text") {
			t.Error("expected raw text in user message")
		}

		resp := chatResponse{}
		resp.Choices = []struct {
			Message chatMessage `json:"message"`
		}{
			{Message: chatMessage{Role: "assistant", Content: "  formatted answer \n"}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOpenAIFormatter("sk-test", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Format(context.Background(), "raw engine text", "what is an expense ratio", "mutual funds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "formatted answer" {
		t.Errorf("expected trimmed formatted answer, got %q", got)
	}
}

func TestOpenAIFormatter_Format_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{
			Error: &struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}{
				Message: "rate limited",
				Type:    "rate_limit_error",
				Code:    "rate_limit",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOpenAIFormatter("sk-test", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Format(context.Background(), "raw", "q", "")
	if err == nil {
		t.Error("expected error for API error response")
	}
}

func TestOpenAIFormatter_Format_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	svc, err := NewOpenAIFormatter("sk-test", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Format(context.Background(), "raw", "q", "")
	if err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenAIFormatter_Close(t *testing.T) {
	svc, err := NewOpenAIFormatter("sk-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}
