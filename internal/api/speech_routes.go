package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bharatverse/bharatverse/services"
)

type ttsRequest struct {
	Text       string  `json:"text"`
	VoiceType  string  `json:"voice_type"`
	Encoding   string  `json:"encoding"`
	SpeedRatio float64 `json:"speed_ratio"`
	TimeoutMS  int     `json:"timeout_ms"`
}

func (h *Handler) writeSpeechError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, services.ErrSpeechDisabled):
		writeError(c, http.StatusServiceUnavailable, "speech service unavailable", err)
	case errors.Is(err, services.ErrEmptySpeech):
		writeError(c, http.StatusBadRequest, "text is required", err)
	default:
		h.logger.Warnw(message, "error", err)
		writeError(c, statusFromError(err), message, err)
	}
}

// handleTTS synthesizes text and returns the audio base64 encoded.
func (h *Handler) handleTTS(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request payload", err)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(c, http.StatusBadRequest, "text is required", services.ErrEmptySpeech)
		return
	}

	ctx, cancel := contextWithTimeout(c.Request.Context(), req.TimeoutMS, 90*time.Second)
	defer cancel()

	result, err := h.speech.Synthesize(ctx, services.TTSRequest{
		Text:       req.Text,
		VoiceType:  req.VoiceType,
		Encoding:   req.Encoding,
		SpeedRatio: req.SpeedRatio,
	})
	if err != nil {
		h.writeSpeechError(c, "tts processing failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reqid":    result.ReqID,
		"audio":    base64.StdEncoding.EncodeToString(result.Audio),
		"format":   result.Format,
		"duration": result.Duration,
	})
}

func (h *Handler) handleVoiceList(c *gin.Context) {
	timeoutMS := 0
	if raw := strings.TrimSpace(c.Query("timeout_ms")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			timeoutMS = parsed
		}
	}

	ctx, cancel := contextWithTimeout(c.Request.Context(), timeoutMS, 30*time.Second)
	defer cancel()

	voices, err := h.speech.ListVoices(ctx)
	if err != nil {
		h.writeSpeechError(c, "voice list failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

func contextWithTimeout(parent context.Context, timeoutMS int, fallback time.Duration) (context.Context, context.CancelFunc) {
	if timeoutMS > 0 {
		return context.WithTimeout(parent, time.Duration(timeoutMS)*time.Millisecond)
	}
	if fallback <= 0 {
		fallback = 30 * time.Second
	}
	return context.WithTimeout(parent, fallback)
}
