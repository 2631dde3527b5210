package models

import "time"

// ChangeType mirrors the row-level operation that produced a change notification.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Content store collections that emit change notifications.
const (
	CollectionStories     = "stories"
	CollectionEnvironment = "environmental_data"
	CollectionWisdom      = "wisdom_content"
)

// ChangeEvent notifies subscribers that a record in a collection changed.
type ChangeEvent struct {
	Collection string     `json:"collection"`
	Type       ChangeType `json:"type"`
	RecordID   string     `json:"record_id"`
	At         time.Time  `json:"at"`
}
