package guide

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/models"
)

var (
	messageEventType = sse.Type("message")
	loadingEventType = sse.Type("loading")
	speechEventType  = sse.Type("speech")
	closedEventType  = sse.Type("closed")
)

type sessionKey struct{}

// Archive stores transcripts of sessions that have been closed.
type Archive interface {
	SaveConversation(ctx context.Context, conversation models.Conversation) error
}

// Voice synthesizes speech for a finished reply.
type Voice interface {
	Synthesize(ctx context.Context, text string) (audio []byte, format string, err error)
}

type ManagerConfig struct {
	Greeting    string
	Fallback    string
	MaxSessions int
	IdleTTL     time.Duration
}

type ManagerOption func(*Manager)

func WithArchive(archive Archive) ManagerOption {
	return func(m *Manager) { m.archive = archive }
}

func WithVoice(voice Voice) ManagerOption {
	return func(m *Manager) { m.voice = voice }
}

func WithLogger(logger *zap.SugaredLogger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager owns the live guide sessions and streams their updates to browsers over
// server-sent events, one topic per session.
type Manager struct {
	completer Completer
	archive   Archive
	voice     Voice
	logger    *zap.SugaredLogger
	cfg       ManagerConfig
	events    *sse.Server

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(completer Completer, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.Fallback == "" {
		cfg.Fallback = DefaultFallback
	}

	m := &Manager{
		completer: completer,
		logger:    zap.NewNop().Sugar(),
		cfg:       cfg,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.events = &sse.Server{
		OnSession: func(s *sse.Session) (sse.Subscription, bool) {
			id, _ := s.Req.Context().Value(sessionKey{}).(string)
			if id == "" {
				return sse.Subscription{}, false
			}
			// Send the headers now; clients wait for them before the first event.
			_ = s.Flush()
			return sse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      []string{sessionTopic(id)},
			}, true
		},
	}

	return m
}

func sessionTopic(id string) string {
	return fmt.Sprintf("session-%s", id)
}

// Create starts a session seeded with the greeting.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	opts := SessionOptions{
		Greeting: m.cfg.Greeting,
		Fallback: m.cfg.Fallback,
		Observer: m.observer(id),
		Logger:   m.logger,
	}
	if m.voice != nil {
		opts.Speaker = m.speaker(id)
	}

	session := NewSession(id, m.completer, opts)
	m.sessions[id] = session
	m.logger.Debugw("guide session created", "session_id", id)
	return session, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears the session down and archives what it said. The session is removed even
// when archiving fails.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	return m.teardown(ctx, session)
}

func (m *Manager) teardown(ctx context.Context, session *Session) error {
	session.Close()
	messages := session.Messages()

	msg := &sse.Message{Type: closedEventType}
	msg.AppendData("bye")
	_ = m.events.Publish(msg, sessionTopic(session.ID()))

	if m.archive == nil {
		return nil
	}

	conversation := models.Conversation{
		ID:         session.ID(),
		Messages:   messages,
		StartedAt:  session.CreatedAt(),
		ArchivedAt: time.Now().UTC(),
	}
	if err := m.archive.SaveConversation(ctx, conversation); err != nil {
		return fmt.Errorf("archive session %s: %w", session.ID(), err)
	}
	return nil
}

// PruneIdle closes sessions that have not been used for longer than the configured idle
// TTL and returns how many were closed.
func (m *Manager) PruneIdle(ctx context.Context, now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var stale []*Session
	for id, session := range m.sessions {
		if session.Loading() {
			continue
		}
		if now.Sub(session.LastActive()) > m.cfg.IdleTTL {
			stale = append(stale, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range stale {
		if err := m.teardown(ctx, session); err != nil {
			m.logger.Warnw("failed to archive idle session", "session_id", session.ID(), "error", err)
		}
	}
	return len(stale)
}

// RunPruner calls PruneIdle every interval until ctx is done.
func (m *Manager) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.PruneIdle(ctx, now.UTC()); n > 0 {
				m.logger.Infow("pruned idle guide sessions", "count", n)
			}
		}
	}
}

// ServeEvents streams the updates of session id to the client.
func (m *Manager) ServeEvents(w http.ResponseWriter, r *http.Request, id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	ctx := context.WithValue(r.Context(), sessionKey{}, id)
	m.events.ServeHTTP(w, r.WithContext(ctx))
	return nil
}

// Shutdown closes every session and the event server.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, session := range sessions {
		if err := m.teardown(ctx, session); err != nil {
			m.logger.Warnw("failed to archive session on shutdown", "session_id", session.ID(), "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.events.Shutdown(ctx)
}

func (m *Manager) observer(id string) Observer {
	topic := sessionTopic(id)
	return func(update Update) {
		m.publishJSON(topic, messageEventType, update)
		if update.State == StateDone || update.State == StateFailed || update.State == StateAwaitingChunk {
			m.publishJSON(topic, loadingEventType, map[string]bool{"loading": update.Loading})
		}
	}
}

func (m *Manager) speaker(id string) Speaker {
	topic := sessionTopic(id)
	return SpeakerFunc(func(ctx context.Context, text string) error {
		audio, format, err := m.voice.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		m.publishJSON(topic, speechEventType, map[string]string{
			"format": format,
			"audio":  base64.StdEncoding.EncodeToString(audio),
		})
		return nil
	})
}

func (m *Manager) publishJSON(topic string, eventType sse.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warnw("failed to encode guide event", "error", err)
		return
	}

	msg := &sse.Message{Type: eventType}
	msg.AppendData(string(data))
	if err := m.events.Publish(msg, topic); err != nil {
		m.logger.Debugw("failed to publish guide event", "topic", topic, "error", err)
	}
}
