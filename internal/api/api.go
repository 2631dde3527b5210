package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/auth"
	"github.com/bharatverse/bharatverse/internal/content"
	"github.com/bharatverse/bharatverse/internal/guide"
	"github.com/bharatverse/bharatverse/internal/models"
	"github.com/bharatverse/bharatverse/internal/realtime"
	"github.com/bharatverse/bharatverse/services"
)

// ConversationArchive reads back transcripts of closed guide sessions.
type ConversationArchive interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Auth     *auth.Service
	Guide    *guide.Manager
	Archive  ConversationArchive
	Content  *content.Service
	Hub      *realtime.Hub
	Speech   *services.TTSService
	Health   map[string]HealthCheck
	Logger   *zap.SugaredLogger
	Markdown *Markdown
}

type Handler struct {
	authService *auth.Service
	guide       *guide.Manager
	archive     ConversationArchive
	content     *content.Service
	hub         *realtime.Hub
	speech      *services.TTSService
	health      map[string]HealthCheck
	logger      *zap.SugaredLogger
	markdown    *Markdown
}

func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	markdown := deps.Markdown
	if markdown == nil {
		markdown = NewMarkdown()
	}

	return &Handler{
		authService: deps.Auth,
		guide:       deps.Guide,
		archive:     deps.Archive,
		content:     deps.Content,
		hub:         deps.Hub,
		speech:      deps.Speech,
		health:      deps.Health,
		logger:      logger,
		markdown:    markdown,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.handleHealth)

	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)

	requireAuth := auth.RequireAuth(h.authService)

	guideGroup := apiGroup.Group("/guide/sessions", h.requireService(h.guide != nil, "guide"))
	guideGroup.POST("", h.handleCreateSession)
	guideGroup.GET("/:id", h.handleGetSession)
	guideGroup.POST("/:id/messages", h.handleSendMessage)
	guideGroup.GET("/:id/events", h.handleSessionEvents)
	guideGroup.DELETE("/:id", h.handleCloseSession)

	apiGroup.GET("/guide/archives/:id", h.requireService(h.archive != nil, "archive"), h.handleGetArchive)

	storyGroup := apiGroup.Group("/stories", h.requireService(h.content != nil, "content"))
	storyGroup.GET("", h.handleListStories)
	storyGroup.POST("", requireAuth, h.handleCreateStory)
	storyGroup.POST("/:id/like", h.handleLikeStory)

	envGroup := apiGroup.Group("/environment", h.requireService(h.content != nil, "content"))
	envGroup.GET("", h.handleListEnvironment)
	envGroup.GET("/summary", h.handleEnvironmentSummary)
	envGroup.POST("", requireAuth, h.handleRecordEnvironment)

	apiGroup.GET("/wisdom", h.requireService(h.content != nil, "content"), h.handleListWisdom)

	ecoGroup := apiGroup.Group("/ecosystem")
	ecoGroup.GET("/new", h.handleNewGame)
	ecoGroup.POST("/evaluate", h.handleEvaluate)

	speechGroup := apiGroup.Group("/speech")
	speechGroup.POST("/tts", h.handleTTS)
	speechGroup.GET("/voices", h.handleVoiceList)

	apiGroup.GET("/realtime/:collection", h.requireService(h.hub != nil, "realtime"), h.handleRealtime)
}

func (h *Handler) requireService(available bool, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available {
			writeError(c, http.StatusServiceUnavailable, name+" service unavailable", errServiceUnavailable)
			c.Abort()
			return
		}
		c.Next()
	}
}

var errServiceUnavailable = errors.New("service not configured")

func (h *Handler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func statusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
