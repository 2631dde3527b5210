package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bharatverse/bharatverse/internal/models"
	"github.com/bharatverse/bharatverse/internal/utils"
)

func TestCompletionClientStreamsBody(t *testing.T) {
	var received completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("unexpected apikey header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n")
	}))
	defer srv.Close()

	client, err := NewCompletionClient(utils.GuideConfig{CompletionURL: srv.URL, APIKey: "anon-key"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	body, err := client.Stream(context.Background(), []models.ChatMessage{
		{ID: 0, Role: models.ChatRoleAssistant, Content: "Namaste"},
		{ID: 1, Role: models.ChatRoleUser, Content: "Tell me about Kerala"},
	})
	if err != nil {
		t.Fatalf("stream returned error: %v", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected streamed body")
	}

	if len(received.Messages) != 2 {
		t.Fatalf("expected two messages, got %+v", received.Messages)
	}
	if received.Messages[0].Role != "assistant" || received.Messages[1].Role != "user" {
		t.Fatalf("unexpected roles %+v", received.Messages)
	}
	if received.Messages[1].Content != "Tell me about Kerala" {
		t.Fatalf("unexpected content %q", received.Messages[1].Content)
	}
}

func TestCompletionClientRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"Rate limits exceeded, please try again later."}`)
	}))
	defer srv.Close()

	client, _ := NewCompletionClient(utils.GuideConfig{CompletionURL: srv.URL}, nil)
	_, err := client.Stream(context.Background(), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "Rate limits exceeded, please try again later." {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestNewCompletionClientRequiresEndpoint(t *testing.T) {
	if _, err := NewCompletionClient(utils.GuideConfig{}, nil); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}

func TestBuildAPIErrorFormats(t *testing.T) {
	err := buildAPIError("tts", http.StatusBadRequest, []byte(`{"error":{"code":"bad_voice","message":" unknown voice "}}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "bad_voice" || apiErr.Message != "unknown voice" {
		t.Fatalf("unexpected structured error %+v", err)
	}

	err = buildAPIError("tts", http.StatusBadGateway, nil)
	if !errors.As(err, &apiErr) || apiErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("expected status text fallback, got %v", err)
	}

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	err = buildAPIError("tts", http.StatusInternalServerError, long)
	if !errors.As(err, &apiErr) || len(apiErr.Message) != 256 {
		t.Fatalf("expected snippet truncated to 256 bytes, got %d", len(apiErr.Message))
	}
}
