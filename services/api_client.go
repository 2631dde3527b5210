package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 20 * time.Second

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// apiErrorEnvelope accepts both {"error":{"code","message"}} and {"error":"message"}.
type apiErrorEnvelope struct {
	Error json.RawMessage `json:"error,omitempty"`
}

// newHTTPClientWithTimeout builds an HTTP client with a custom timeout.
// Falls back to the package default when duration is non-positive.
func newHTTPClientWithTimeout(d time.Duration) *http.Client {
	if d <= 0 {
		d = defaultHTTPTimeout
	}
	return &http.Client{Timeout: d}
}

// newStreamingHTTPClient has no overall timeout; the request context bounds streamed
// responses.
func newStreamingHTTPClient() *http.Client {
	return &http.Client{}
}

func decodeAPIError(body []byte) *apiError {
	if len(body) == 0 {
		return nil
	}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return nil
	}

	var message string
	if err := json.Unmarshal(envelope.Error, &message); err == nil {
		message = strings.TrimSpace(message)
		if message == "" {
			return nil
		}
		return &apiError{Message: message}
	}

	var structured apiError
	if err := json.Unmarshal(envelope.Error, &structured); err != nil {
		return nil
	}
	structured.Message = strings.TrimSpace(structured.Message)
	return &structured
}

// APIError is returned when an upstream service answers with a non-2xx status.
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s api error (%d, %s): %s", e.Service, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s api error (%d): %s", e.Service, e.StatusCode, e.Message)
}

func buildAPIError(service string, statusCode int, body []byte) error {
	if decoded := decodeAPIError(body); decoded != nil && (decoded.Code != "" || decoded.Message != "") {
		message := decoded.Message
		if message == "" {
			message = http.StatusText(statusCode)
		}
		return &APIError{Service: service, StatusCode: statusCode, Code: decoded.Code, Message: message}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return &APIError{Service: service, StatusCode: statusCode, Message: snippet}
}
