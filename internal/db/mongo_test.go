package db_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bharatverse/bharatverse/internal/db"
	"github.com/bharatverse/bharatverse/internal/models"
	"github.com/bharatverse/bharatverse/internal/utils"
)

func TestMongoConversationArchive(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	database := "bharatverse_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	store, err := db.NewMongo(context.Background(), utils.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() {
		ctx := context.Background()
		store.Database.Drop(ctx)
		store.Close(ctx)
	}()

	ctx := context.Background()
	if err := store.EnsureCollections(ctx); err != nil {
		t.Fatalf("ensure collections failed: %v", err)
	}

	conversation := models.Conversation{
		ID: uuid.NewString(),
		Messages: []models.ChatMessage{
			{ID: 0, Role: models.ChatRoleAssistant, Content: "Namaste"},
			{ID: 1, Role: models.ChatRoleUser, Content: "Hello"},
		},
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
		ArchivedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := store.SaveConversation(ctx, conversation); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	conversation.Messages = append(conversation.Messages, models.ChatMessage{ID: 2, Role: models.ChatRoleAssistant, Content: "Welcome"})
	if err := store.SaveConversation(ctx, conversation); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	fetched, err := store.GetConversation(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(fetched.Messages) != 3 || fetched.Messages[2].Content != "Welcome" {
		t.Fatalf("unexpected archived messages %+v", fetched.Messages)
	}

	if _, err := store.GetConversation(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
