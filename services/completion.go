package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/models"
	"github.com/bharatverse/bharatverse/internal/utils"
)

const maxErrorBodyBytes = 4096

type completionRequest struct {
	Messages []openai.ChatCompletionMessage `json:"messages"`
}

// CompletionClient opens streamed chat completions against the guide endpoint.
type CompletionClient struct {
	endpoint string
	apiKey   string
	client   httpDoer
	logger   *zap.SugaredLogger
}

func NewCompletionClient(cfg utils.GuideConfig, logger *zap.SugaredLogger) (*CompletionClient, error) {
	endpoint := strings.TrimSpace(cfg.CompletionURL)
	if endpoint == "" {
		return nil, errors.New("completion endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &CompletionClient{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   newStreamingHTTPClient(),
		logger:   logger,
	}, nil
}

// Stream posts the conversation and returns the response body once a 2xx status has been
// received. The caller owns the body and must close it.
func (c *CompletionClient) Stream(ctx context.Context, messages []models.ChatMessage) (io.ReadCloser, error) {
	payload := completionRequest{Messages: make([]openai.ChatCompletionMessage, 0, len(messages))}
	for _, msg := range messages {
		payload.Messages = append(payload.Messages, openai.ChatCompletionMessage{
			Role:    completionRole(msg.Role),
			Content: msg.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completion api: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := buildAPIError("completion", resp.StatusCode, respBody)
		c.logger.Warnw("completion request rejected", "status", resp.StatusCode, "error", apiErr)
		return nil, apiErr
	}

	return resp.Body, nil
}

func completionRole(role models.ChatRole) string {
	if role == models.ChatRoleUser {
		return openai.ChatMessageRoleUser
	}
	return openai.ChatMessageRoleAssistant
}
