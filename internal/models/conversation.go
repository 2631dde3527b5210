package models

import "time"

// Conversation is an archived guide transcript.
type Conversation struct {
	ID         string        `json:"id" bson:"_id"`
	Messages   []ChatMessage `json:"messages" bson:"messages"`
	StartedAt  time.Time     `json:"started_at" bson:"started_at"`
	ArchivedAt time.Time     `json:"archived_at" bson:"archived_at"`
}
