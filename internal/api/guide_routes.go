package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bharatverse/bharatverse/internal/guide"
	"github.com/bharatverse/bharatverse/internal/models"
)

const archiveTimeout = 5 * time.Second

// statusClientClosedRequest marks requests abandoned by the client in access logs.
const statusClientClosedRequest = 499

type sendMessageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID      int             `json:"id"`
	Role    models.ChatRole `json:"role"`
	Content string          `json:"content"`
	HTML    string          `json:"html,omitempty"`
}

// messageResponse renders assistant content to HTML alongside the raw text.
func (h *Handler) messageResponse(msg models.ChatMessage) messageResponse {
	resp := messageResponse{ID: msg.ID, Role: msg.Role, Content: msg.Content}
	if msg.Role == models.ChatRoleAssistant {
		rendered, err := h.markdown.Render(msg.Content)
		if err != nil {
			h.logger.Debugw("markdown render failed", "error", err)
		}
		resp.HTML = rendered
	}
	return resp
}

func (h *Handler) sessionResponse(session *guide.Session) gin.H {
	messages := session.Messages()
	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, h.messageResponse(msg))
	}

	return gin.H{
		"id":       session.ID(),
		"loading":  session.Loading(),
		"messages": out,
	}
}

func (h *Handler) writeGuideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guide.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, "session not found", err)
	case errors.Is(err, guide.ErrEmptyInput):
		writeError(c, http.StatusBadRequest, "message content is required", err)
	case errors.Is(err, guide.ErrSendInFlight):
		writeError(c, http.StatusConflict, "a reply is still streaming", err)
	case errors.Is(err, guide.ErrSessionClosed):
		writeError(c, http.StatusGone, "session closed", err)
	case errors.Is(err, guide.ErrTooManySessions):
		writeError(c, http.StatusServiceUnavailable, "too many active sessions", err)
	default:
		writeError(c, http.StatusInternalServerError, "guide request failed", err)
	}
}

func (h *Handler) handleCreateSession(c *gin.Context) {
	session, err := h.guide.Create()
	if err != nil {
		h.writeGuideError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.sessionResponse(session))
}

func (h *Handler) handleGetSession(c *gin.Context) {
	session, err := h.guide.Get(c.Param("id"))
	if err != nil {
		h.writeGuideError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(session))
}

// handleSendMessage starts a reply and answers 202 at once; updates follow on the events
// stream. With ?wait=true the handler blocks until the reply settles.
func (h *Handler) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	session, err := h.guide.Get(c.Param("id"))
	if err != nil {
		h.writeGuideError(c, err)
		return
	}

	pending, err := session.SendAsync(req.Content)
	if err != nil {
		h.writeGuideError(c, err)
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		c.JSON(http.StatusAccepted, gin.H{
			"user_message_id":      pending.UserMessageID,
			"assistant_message_id": pending.AssistantMessageID,
		})
		return
	}

	select {
	case exchange, ok := <-pending.Done:
		if !ok || exchange == nil {
			writeError(c, http.StatusGone, "session closed", guide.ErrSessionClosed)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_message_id":      exchange.UserMessageID,
			"assistant_message_id": exchange.AssistantMessageID,
			"content":              exchange.Content,
			"state":                exchange.State,
		})
	case <-c.Request.Context().Done():
		// The reply keeps streaming for event subscribers; nothing reaches the client.
		h.logger.Infow("client left before guide reply settled",
			"session_id", session.ID(),
			"assistant_message_id", pending.AssistantMessageID,
		)
		c.Status(statusClientClosedRequest)
	}
}

func (h *Handler) handleSessionEvents(c *gin.Context) {
	if err := h.guide.ServeEvents(c.Writer, c.Request, c.Param("id")); err != nil {
		h.writeGuideError(c, err)
	}
}

func (h *Handler) handleCloseSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), archiveTimeout)
	defer cancel()

	if err := h.guide.Close(ctx, c.Param("id")); err != nil {
		if errors.Is(err, guide.ErrSessionNotFound) {
			h.writeGuideError(c, err)
			return
		}
		h.logger.Warnw("guide session closed without archive", "session_id", c.Param("id"), "error", err)
	}

	c.Status(http.StatusNoContent)
}

// handleGetArchive returns the transcript a closed session left in the archive.
func (h *Handler) handleGetArchive(c *gin.Context) {
	conversation, err := h.archive.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "archived session not found", err)
			return
		}
		h.logger.Errorw("failed to read archived session", "session_id", c.Param("id"), "error", err)
		writeError(c, http.StatusInternalServerError, "failed to read archived session", err)
		return
	}

	messages := make([]messageResponse, 0, len(conversation.Messages))
	for _, msg := range conversation.Messages {
		messages = append(messages, h.messageResponse(msg))
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          conversation.ID,
		"started_at":  conversation.StartedAt,
		"archived_at": conversation.ArchivedAt,
		"messages":    messages,
	})
}
