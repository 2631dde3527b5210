package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/bharatverse/bharatverse/internal/models"
)

var conversationsBucket = []byte("conversations")

// BoltArchive keeps archived transcripts in a local bbolt file. It is used when no
// MongoDB is configured.
type BoltArchive struct {
	db *bolt.DB
}

func OpenBoltArchive(path string) (*BoltArchive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt: create directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	return &BoltArchive{db: db}, nil
}

func (a *BoltArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *BoltArchive) SaveConversation(ctx context.Context, conversation models.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("bolt: encode conversation: %w", err)
	}

	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte(conversation.ID), data)
	})
}

func (a *BoltArchive) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var conversation models.Conversation
	err := a.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(conversationsBucket).Get([]byte(id))
		if data == nil {
			return models.ErrNotFound
		}
		return json.Unmarshal(data, &conversation)
	})
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CountConversations reports how many transcripts are archived.
func (a *BoltArchive) CountConversations() (int, error) {
	var n int
	err := a.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(conversationsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
