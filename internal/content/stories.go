package content

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/bharatverse/bharatverse/internal/models"
)

type StoryInput struct {
	Title    string
	Content  string
	Category string
	Location string
}

// ListStories returns the newest stories for the wall.
func (s *Service) ListStories(ctx context.Context) ([]models.Story, error) {
	return s.store.ListStories(ctx, StoryWallLimit)
}

// CreateStory validates and stores a submission by userID.
func (s *Service) CreateStory(ctx context.Context, userID string, input StoryInput) (models.Story, error) {
	if strings.TrimSpace(userID) == "" {
		return models.Story{}, ErrAuthRequired
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Story{}, ErrTitleRequired
	}
	body := strings.TrimSpace(input.Content)
	if body == "" {
		return models.Story{}, ErrContentRequired
	}
	category, err := normalizeCategory(input.Category)
	if err != nil {
		return models.Story{}, err
	}

	story := models.Story{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   body,
		Category:  category,
		MediaURLs: []string{},
		CreatedAt: s.now(),
	}
	if location := strings.TrimSpace(input.Location); location != "" {
		story.Location = &location
	}

	stored, err := s.store.InsertStory(ctx, story)
	if err != nil {
		return models.Story{}, err
	}

	s.publish(ctx, models.CollectionStories, models.ChangeInsert, stored.ID)
	return stored, nil
}

func (s *Service) LikeStory(ctx context.Context, id string) (models.Story, error) {
	story, err := s.store.IncrementStoryLikes(ctx, id)
	if err != nil {
		return models.Story{}, err
	}

	s.publish(ctx, models.CollectionStories, models.ChangeUpdate, story.ID)
	return story, nil
}
