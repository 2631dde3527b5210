package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bharatverse/bharatverse/internal/db"
	"github.com/bharatverse/bharatverse/internal/models"
)

func TestBoltArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "transcripts.db")
	archive, err := db.OpenBoltArchive(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	ctx := context.Background()
	conversation := models.Conversation{
		ID: "session-1",
		Messages: []models.ChatMessage{
			{ID: 0, Role: models.ChatRoleAssistant, Content: "Namaste! 🙏"},
			{ID: 1, Role: models.ChatRoleUser, Content: "Tell me about the Sundarbans"},
		},
		StartedAt:  time.Now().UTC(),
		ArchivedAt: time.Now().UTC(),
	}

	if err := archive.SaveConversation(ctx, conversation); err != nil {
		t.Fatalf("save: %v", err)
	}

	fetched, err := archive.GetConversation(ctx, "session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fetched.Messages) != 2 || fetched.Messages[0].Content != "Namaste! 🙏" {
		t.Fatalf("unexpected conversation %+v", fetched)
	}

	if n, err := archive.CountConversations(); err != nil || n != 1 {
		t.Fatalf("expected one archived conversation, got %d (%v)", n, err)
	}

	if _, err := archive.GetConversation(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBoltArchiveRespectsCancelledContext(t *testing.T) {
	archive, err := db.OpenBoltArchive(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := archive.SaveConversation(ctx, models.Conversation{ID: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
