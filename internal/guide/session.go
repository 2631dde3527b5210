package guide

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/models"
)

const (
	readBufferSize = 4096

	DefaultGreeting = "Namaste! 🙏 I'm your BharatVerse AI Guide. I can help you explore India's ecology, culture, stories, and spiritual wisdom. What would you like to discover today?"
	DefaultFallback = "I apologize, but I encountered an error. Please try again."
)

// State names the phase of the streaming loop a reply is in.
type State string

const (
	StateAwaitingChunk State = "awaiting_chunk"
	StateDispatching   State = "dispatching"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Completer opens a streamed chat completion for the given conversation.
type Completer interface {
	Stream(ctx context.Context, messages []models.ChatMessage) (io.ReadCloser, error)
}

// Speaker renders a finished reply as audio. Errors are logged and otherwise ignored.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Update is published whenever a message or the loading flag changes.
type Update struct {
	MessageID MessageID       `json:"message_id"`
	Role      models.ChatRole `json:"role"`
	Content   string          `json:"content"`
	State     State           `json:"state"`
	Loading   bool            `json:"loading"`
}

type Observer func(Update)

// Exchange describes one user message and the assistant reply it produced.
type Exchange struct {
	UserMessageID      MessageID
	AssistantMessageID MessageID
	Content            string
	State              State
	// Err is the transport failure that caused the fallback reply, if any.
	Err error

	context []models.ChatMessage
}

type SessionOptions struct {
	Greeting string
	Fallback string
	Speaker  Speaker
	Observer Observer
	Logger   *zap.SugaredLogger
}

// Session is one guide conversation. At most one reply streams at a time.
type Session struct {
	id         string
	transcript *Transcript
	completer  Completer
	speaker    Speaker
	observer   Observer
	fallback   string
	logger     *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	loading    bool
	closed     bool
	createdAt  time.Time
	lastActive time.Time
}

func NewSession(id string, completer Completer, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	fallback := opts.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC()
	s := &Session{
		id:         id,
		transcript: NewTranscript(),
		completer:  completer,
		speaker:    opts.Speaker,
		observer:   opts.Observer,
		fallback:   fallback,
		logger:     logger.With("session_id", id),
		ctx:        ctx,
		cancel:     cancel,
		createdAt:  now,
		lastActive: now,
	}

	if opts.Greeting != "" {
		s.transcript.Append(models.ChatRoleAssistant, opts.Greeting)
	}

	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Messages() []models.ChatMessage {
	return s.transcript.Messages()
}

func (s *Session) Transcript() *Transcript {
	return s.transcript
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Send appends text as a user message and streams the assistant reply, returning once
// the reply has settled. ctx bounds the completion request; closing the session cancels
// it as well.
func (s *Session) Send(ctx context.Context, text string) (*Exchange, error) {
	exchange, err := s.begin(text, false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.run(ctx, exchange)
	return exchange, nil
}

// Pending identifies a reply that is streaming in the background.
type Pending struct {
	UserMessageID      MessageID
	AssistantMessageID MessageID
	// Done receives the settled exchange and is then closed.
	Done <-chan *Exchange
}

// SendAsync performs the same bookkeeping as Send but streams the reply in the
// background, bounded only by the session's lifetime.
func (s *Session) SendAsync(text string) (*Pending, error) {
	exchange, err := s.begin(text, true)
	if err != nil {
		return nil, err
	}

	done := make(chan *Exchange, 1)
	pending := &Pending{
		UserMessageID:      exchange.UserMessageID,
		AssistantMessageID: exchange.AssistantMessageID,
		Done:               done,
	}

	go func() {
		defer s.wg.Done()
		defer close(done)
		s.run(s.ctx, exchange)
		done <- exchange
	}()

	return pending, nil
}

// Close cancels any streaming reply and invalidates the transcript. It waits for the
// background stream, if any, to stop.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.transcript.Invalidate()
	s.cancel()
	s.wg.Wait()
}

// begin records the user message and the assistant placeholder. background registers
// the stream with the session's wait group while the lock is still held, so Close
// cannot miss it.
func (s *Session) begin(text string, background bool) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.loading {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}

	userID, ok := s.transcript.Append(models.ChatRoleUser, text)
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.loading = true
	s.lastActive = time.Now().UTC()
	if background {
		s.wg.Add(1)
	}
	history := s.transcript.Messages()
	assistantID, _ := s.transcript.Append(models.ChatRoleAssistant, "")
	s.mu.Unlock()

	s.notify(Update{MessageID: userID, Role: models.ChatRoleUser, Content: text, State: StateDone, Loading: true})
	s.notify(Update{MessageID: assistantID, Role: models.ChatRoleAssistant, State: StateAwaitingChunk, Loading: true})

	return &Exchange{
		UserMessageID:      userID,
		AssistantMessageID: assistantID,
		State:              StateAwaitingChunk,
		context:            history,
	}, nil
}

func (s *Session) run(ctx context.Context, exchange *Exchange) {
	text, err := s.stream(ctx, exchange.AssistantMessageID, exchange.context)
	exchange.context = nil

	switch {
	case errors.Is(err, errTranscriptClosed), err != nil && s.transcript.Invalidated():
		exchange.State = StateFailed
		exchange.Err = ErrSessionClosed
		exchange.Content = text
		s.setLoading(false)
		return
	case err != nil:
		s.logger.Warnw("guide reply failed", "error", err)
		s.transcript.SetContent(exchange.AssistantMessageID, s.fallback)
		exchange.State = StateFailed
		exchange.Err = err
		exchange.Content = s.fallback
	default:
		exchange.State = StateDone
		exchange.Content = text
	}

	s.setLoading(false)
	s.notify(Update{
		MessageID: exchange.AssistantMessageID,
		Role:      models.ChatRoleAssistant,
		Content:   exchange.Content,
		State:     exchange.State,
		Loading:   false,
	})

	if exchange.State == StateDone && text != "" && s.speaker != nil {
		go s.speak(text)
	}
}

// stream runs the read loop for one reply. It returns the accumulated text on a clean
// end of stream.
func (s *Session) stream(ctx context.Context, id MessageID, history []models.ChatMessage) (string, error) {
	body, err := s.completer.Stream(ctx, history)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var (
		decoder Decoder
		text    strings.Builder
	)
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, delta := range decoder.Feed(buf[:n]) {
				text.WriteString(delta)
				content := text.String()
				if !s.transcript.SetContent(id, content) {
					return content, errTranscriptClosed
				}
				s.notify(Update{
					MessageID: id,
					Role:      models.ChatRoleAssistant,
					Content:   content,
					State:     StateDispatching,
					Loading:   true,
				})
			}
		}

		switch {
		case readErr == io.EOF:
			if pending := decoder.Pending(); pending > 0 {
				s.logger.Debugw("discarding unterminated stream tail", "bytes", pending)
			}
			return text.String(), nil
		case readErr != nil:
			if s.transcript.Invalidated() {
				return text.String(), errTranscriptClosed
			}
			return "", readErr
		}
	}
}

func (s *Session) speak(text string) {
	if err := s.speaker.Speak(s.ctx, text); err != nil {
		s.logger.Debugw("guide narration skipped", "error", err)
	}
}

func (s *Session) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.lastActive = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Session) notify(update Update) {
	if s.observer == nil || s.transcript.Invalidated() {
		return
	}
	s.observer(update)
}
