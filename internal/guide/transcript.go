package guide

import (
	"sync"

	"github.com/bharatverse/bharatverse/internal/models"
)

// MessageID addresses a message inside a Transcript. It is assigned on append and never
// reused, so a stream can keep writing to its own reply while other messages are added.
type MessageID int

// Transcript is the ordered conversation of one guide session. Messages are only ever
// appended; the content of an existing message may be replaced through its MessageID.
// After Invalidate every write is ignored.
type Transcript struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
	invalid  bool
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message and returns its handle. ok is false once the transcript has been
// invalidated.
func (t *Transcript) Append(role models.ChatRole, content string) (id MessageID, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.invalid {
		return -1, false
	}

	id = MessageID(len(t.messages))
	t.messages = append(t.messages, models.ChatMessage{
		ID:      int(id),
		Role:    role,
		Content: content,
	})
	return id, true
}

// SetContent replaces the content of the message addressed by id. The role is left
// untouched.
func (t *Transcript) SetContent(id MessageID, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.invalid || id < 0 || int(id) >= len(t.messages) {
		return false
	}
	t.messages[id].Content = content
	return true
}

func (t *Transcript) Message(id MessageID) (models.ChatMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || int(id) >= len(t.messages) {
		return models.ChatMessage{}, false
	}
	return t.messages[id], true
}

// Messages returns a copy of the conversation.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Invalidate detaches the transcript from any in-flight stream.
func (t *Transcript) Invalidate() {
	t.mu.Lock()
	t.invalid = true
	t.mu.Unlock()
}

func (t *Transcript) Invalidated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.invalid
}
