package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatverse/bharatverse/internal/auth"
	"github.com/bharatverse/bharatverse/internal/content"
	"github.com/bharatverse/bharatverse/internal/models"
)

type createStoryRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Location string `json:"location"`
}

func (h *Handler) writeContentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, content.ErrAuthRequired):
		writeError(c, http.StatusUnauthorized, err.Error(), err)
	case errors.Is(err, content.ErrTitleRequired),
		errors.Is(err, content.ErrContentRequired),
		errors.Is(err, content.ErrUnknownCategory),
		errors.Is(err, content.ErrLocationRequired),
		errors.Is(err, content.ErrInvalidReading):
		writeError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, models.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error(), err)
	default:
		h.logger.Errorw(fallback, "error", err)
		writeError(c, http.StatusInternalServerError, fallback, err)
	}
}

func (h *Handler) handleListStories(c *gin.Context) {
	stories, err := h.content.ListStories(c.Request.Context())
	if err != nil {
		h.writeContentError(c, err, "failed to list stories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (h *Handler) handleCreateStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	story, err := h.content.CreateStory(c.Request.Context(), auth.UserID(c), content.StoryInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Location: req.Location,
	})
	if err != nil {
		h.writeContentError(c, err, "failed to share story")
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *Handler) handleLikeStory(c *gin.Context) {
	story, err := h.content.LikeStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeContentError(c, err, "failed to like story")
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) handleListEnvironment(c *gin.Context) {
	readings, err := h.content.ListEnvironment(c.Request.Context())
	if err != nil {
		h.writeContentError(c, err, "failed to list environmental data")
		return
	}
	if readings == nil {
		readings = []models.EnvironmentalReading{}
	}
	c.JSON(http.StatusOK, gin.H{"readings": readings})
}

func (h *Handler) handleEnvironmentSummary(c *gin.Context) {
	summary, err := h.content.DashboardSummary(c.Request.Context())
	if err != nil {
		h.writeContentError(c, err, "failed to summarise environmental data")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) handleRecordEnvironment(c *gin.Context) {
	var reading models.EnvironmentalReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	stored, err := h.content.RecordEnvironment(c.Request.Context(), reading)
	if err != nil {
		h.writeContentError(c, err, "failed to record environmental data")
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *Handler) handleListWisdom(c *gin.Context) {
	entries, err := h.content.ListWisdom(c.Request.Context(), c.Query("category"), c.Query("q"))
	if err != nil {
		h.writeContentError(c, err, "failed to list wisdom content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
