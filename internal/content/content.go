package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bharatverse/bharatverse/internal/models"
)

// StoryWallLimit is how many stories the wall shows.
const StoryWallLimit = 12

var (
	ErrAuthRequired     = errors.New("content: sign in required")
	ErrTitleRequired    = errors.New("content: title is required")
	ErrContentRequired  = errors.New("content: content is required")
	ErrUnknownCategory  = errors.New("content: unknown category")
	ErrLocationRequired = errors.New("content: location is required")
	ErrInvalidReading   = errors.New("content: reading out of range")
)

// Store is the persistence backend for the content collections.
type Store interface {
	ListStories(ctx context.Context, limit int) ([]models.Story, error)
	InsertStory(ctx context.Context, story models.Story) (models.Story, error)
	IncrementStoryLikes(ctx context.Context, id string) (models.Story, error)
	ListEnvironment(ctx context.Context) ([]models.EnvironmentalReading, error)
	UpsertEnvironment(ctx context.Context, reading models.EnvironmentalReading) (models.EnvironmentalReading, bool, error)
	ListWisdom(ctx context.Context) ([]models.WisdomEntry, error)
}

// Publisher receives a change event after every successful write.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(store Store, publisher Publisher, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// publish reports the change; a failed relay does not undo the write.
func (s *Service) publish(ctx context.Context, collection string, change models.ChangeType, id string) {
	if s.publisher == nil {
		return
	}

	event := models.ChangeEvent{Collection: collection, Type: change, RecordID: id, At: s.now()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warnw("failed to publish change event", "collection", collection, "record_id", id, "error", err)
	}
}

func normalizeCategory(category string) (string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return models.DefaultStoryCategory, nil
	}
	for _, known := range models.StoryCategories {
		if category == known {
			return category, nil
		}
	}
	return "", ErrUnknownCategory
}
