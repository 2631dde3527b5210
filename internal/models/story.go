package models

import "time"

// Story is a community submission shown on the story wall.
type Story struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Location   *string   `json:"location"`
	LikesCount int       `json:"likes_count"`
	MediaURLs  []string  `json:"media_urls"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoryCategories lists the accepted story categories in display order.
var StoryCategories = []string{"rural", "tribal", "cultural", "ecological", "spiritual"}

const DefaultStoryCategory = "rural"
