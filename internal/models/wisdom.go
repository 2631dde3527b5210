package models

import "time"

// WisdomEntry is an article of the wisdom library.
type WisdomEntry struct {
	ID              string    `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Content         string    `json:"content" yaml:"content"`
	Category        string    `json:"category" yaml:"category"`
	DifficultyLevel string    `json:"difficulty_level" yaml:"difficulty_level"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Tags            []string  `json:"tags" yaml:"tags"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
}
