package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/utils"
)

var (
	ErrSpeechDisabled = errors.New("speech: not configured")
	ErrEmptySpeech    = errors.New("speech: text cannot be empty")
)

// TTSRequest describes one synthesis task.
type TTSRequest struct {
	Text       string
	VoiceType  string
	Encoding   string
	SpeedRatio float64
}

// TTSResult is the decoded synthesis response.
type TTSResult struct {
	ReqID    string `json:"reqid"`
	Audio    []byte `json:"audio"`
	Format   string `json:"format"`
	Duration string `json:"duration"`
}

// VoiceInfo describes a voice returned by /voice/list.
type VoiceInfo struct {
	VoiceName string `json:"voice_name"`
	VoiceType string `json:"voice_type"`
	URL       string `json:"url"`
	Category  string `json:"category"`
	UpdateMS  int64  `json:"updatetime"`
}

// TTSService wraps the text-to-speech REST API used to narrate guide replies.
type TTSService struct {
	baseURL       string
	apiKey        string
	defaultVoice  string
	defaultFormat string
	client        httpDoer
	logger        *zap.SugaredLogger
}

func NewTTSService(cfg utils.SpeechConfig, logger *zap.SugaredLogger) *TTSService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://openai.qiniu.com/v1"
	}

	voice := strings.TrimSpace(cfg.VoiceType)
	if voice == "" {
		voice = "qiniu_en_female_hwxy"
	}

	format := strings.TrimSpace(cfg.Format)
	if format == "" {
		format = "mp3"
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &TTSService{
		baseURL:       base,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		defaultVoice:  voice,
		defaultFormat: format,
		client:        newHTTPClientWithTimeout(cfg.Timeout),
		logger:        logger,
	}
}

func (s *TTSService) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// Synthesize renders req.Text as audio.
func (s *TTSService) Synthesize(ctx context.Context, req TTSRequest) (*TTSResult, error) {
	if !s.Enabled() {
		return nil, ErrSpeechDisabled
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptySpeech
	}

	voice := strings.TrimSpace(req.VoiceType)
	if voice == "" {
		voice = s.defaultVoice
	}

	encoding := strings.TrimSpace(req.Encoding)
	if encoding == "" {
		encoding = s.defaultFormat
	}

	speed := req.SpeedRatio
	if speed <= 0 {
		speed = 1.0
	}

	payload := map[string]interface{}{
		"audio": map[string]interface{}{
			"voice_type":  voice,
			"encoding":    encoding,
			"speed_ratio": speed,
		},
		"request": map[string]interface{}{
			"text": text,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tts payload: %w", err)
	}

	reqHTTP, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/voice/tts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	reqHTTP.Header.Set("Authorization", "Bearer "+s.apiKey)
	reqHTTP.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(reqHTTP)
	if err != nil {
		return nil, fmt.Errorf("call tts api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildAPIError("tts", resp.StatusCode, respBody)
	}

	var envelope ttsAPIResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}

	if envelope.Error != nil && envelope.Error.Message != "" {
		return nil, fmt.Errorf("tts error: %s", envelope.Error.Message)
	}

	if envelope.Data == "" {
		return nil, errors.New("tts response contained no audio data")
	}

	audio, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode tts audio: %w", err)
	}

	return &TTSResult{
		ReqID:    envelope.ReqID,
		Audio:    audio,
		Format:   encoding,
		Duration: envelope.Addition.Duration,
	}, nil
}

// ListVoices fetches the available voices.
func (s *TTSService) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	if !s.Enabled() {
		return nil, ErrSpeechDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voice/list", nil)
	if err != nil {
		return nil, fmt.Errorf("create voice list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call voice list api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read voice list response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, buildAPIError("tts", resp.StatusCode, body)
	}

	var voices []VoiceInfo
	if err := json.Unmarshal(body, &voices); err != nil {
		return nil, fmt.Errorf("decode voice list response: %w", err)
	}

	return voices, nil
}

type ttsAPIResponse struct {
	ReqID     string      `json:"reqid"`
	Operation string      `json:"operation"`
	Sequence  int         `json:"sequence"`
	Data      string      `json:"data"`
	Addition  ttsAddition `json:"addition"`
	Error     *apiError   `json:"error,omitempty"`
}

type ttsAddition struct {
	Duration string `json:"duration"`
}
