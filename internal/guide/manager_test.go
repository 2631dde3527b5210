package guide

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bharatverse/bharatverse/internal/models"
)

type memoryArchive struct {
	mu    sync.Mutex
	saved []models.Conversation
	err   error
}

func (a *memoryArchive) SaveConversation(_ context.Context, c models.Conversation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, c)
	return nil
}

type fakeVoice struct{}

func (fakeVoice) Synthesize(context.Context, string) ([]byte, string, error) {
	return []byte("ID3"), "mp3", nil
}

func TestManagerCreateSeedsGreeting(t *testing.T) {
	m := NewManager(scripted(), ManagerConfig{})

	session, err := m.Create()
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	messages := session.Messages()
	if len(messages) != 1 || messages[0].Role != models.ChatRoleAssistant || messages[0].Content != DefaultGreeting {
		t.Fatalf("expected greeting, got %+v", messages)
	}

	got, err := m.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("expected lookup to return created session, got %v", err)
	}
}

func TestManagerEnforcesSessionLimit(t *testing.T) {
	m := NewManager(scripted(), ManagerConfig{MaxSessions: 1})

	if _, err := m.Create(); err != nil {
		t.Fatalf("first create returned error: %v", err)
	}
	if _, err := m.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
}

func TestManagerCloseArchivesTranscript(t *testing.T) {
	archive := &memoryArchive{}
	m := NewManager(scripted(`data: {"choices":[{"delta":{"content":"Hello"}}]}`+"\n"), ManagerConfig{}, WithArchive(archive))

	session, err := m.Create()
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if _, err := session.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	if err := m.Close(context.Background(), session.ID()); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	if len(archive.saved) != 1 {
		t.Fatalf("expected one archived conversation, got %d", len(archive.saved))
	}
	saved := archive.saved[0]
	if saved.ID != session.ID() || len(saved.Messages) != 3 || saved.Messages[2].Content != "Hello" {
		t.Fatalf("unexpected archived conversation %+v", saved)
	}
	if _, err := m.Get(session.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected closed session to be removed, got %v", err)
	}
	if !session.Closed() {
		t.Fatalf("expected session to be closed")
	}
	if err := m.Close(context.Background(), session.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected second close to report not found, got %v", err)
	}
}

func TestManagerCloseRemovesSessionWhenArchiveFails(t *testing.T) {
	archive := &memoryArchive{err: errors.New("disk full")}
	m := NewManager(scripted(), ManagerConfig{}, WithArchive(archive))

	session, _ := m.Create()
	if err := m.Close(context.Background(), session.ID()); err == nil {
		t.Fatalf("expected archive error to be reported")
	}
	if m.Len() != 0 {
		t.Fatalf("expected session removed despite archive failure")
	}
}

func TestManagerPruneIdle(t *testing.T) {
	m := NewManager(scripted(), ManagerConfig{IdleTTL: time.Minute})

	session, _ := m.Create()
	if n := m.PruneIdle(context.Background(), time.Now().UTC()); n != 0 {
		t.Fatalf("expected fresh session kept, pruned %d", n)
	}
	if n := m.PruneIdle(context.Background(), time.Now().UTC().Add(2*time.Minute)); n != 1 {
		t.Fatalf("expected idle session pruned, got %d", n)
	}
	if !session.Closed() {
		t.Fatalf("expected pruned session to be closed")
	}
}

func TestManagerServeEventsUnknownSession(t *testing.T) {
	m := NewManager(scripted(), ManagerConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	if err := m.ServeEvents(rec, req, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerStreamsSessionEvents(t *testing.T) {
	m := NewManager(scripted(`data: {"choices":[{"delta":{"content":"Namaste"}}]}`+"\n"), ManagerConfig{}, WithVoice(fakeVoice{}))
	defer m.Shutdown(context.Background())

	session, err := m.Create()
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.ServeEvents(w, r, session.ID())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("expected event stream headers before any event, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// Give the subscription a moment to register before publishing.
	time.Sleep(100 * time.Millisecond)
	if _, err := session.SendAsync("greet me"); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	seen := map[string]bool{}
	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			if event == "message" && strings.Contains(data, `"content":"Namaste"`) && strings.Contains(data, `"state":"done"`) {
				seen["message"] = true
			}
			if event == "loading" && strings.Contains(data, `"loading":false`) {
				seen["loading"] = true
			}
			if event == "speech" && strings.Contains(data, `"format":"mp3"`) {
				seen["speech"] = true
			}
		}
		if seen["message"] && seen["loading"] && seen["speech"] {
			return
		}
	}
	t.Fatalf("missing events, saw %v (scan error: %v)", seen, scanner.Err())
}
