package content

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bharatverse/bharatverse/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	stories     []models.Story
	readings    map[string]models.EnvironmentalReading
	wisdom      []models.WisdomEntry
	lastLimit   int
	insertError error
}

func newFakeStore() *fakeStore {
	return &fakeStore{readings: make(map[string]models.EnvironmentalReading)}
}

func (f *fakeStore) ListStories(_ context.Context, limit int) ([]models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := append([]models.Story(nil), f.stories...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertStory(_ context.Context, story models.Story) (models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertError != nil {
		return models.Story{}, f.insertError
	}
	f.stories = append([]models.Story{story}, f.stories...)
	return story, nil
}

func (f *fakeStore) IncrementStoryLikes(_ context.Context, id string) (models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.stories {
		if f.stories[i].ID == id {
			f.stories[i].LikesCount++
			return f.stories[i], nil
		}
	}
	return models.Story{}, models.ErrNotFound
}

func (f *fakeStore) ListEnvironment(context.Context) ([]models.EnvironmentalReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EnvironmentalReading, 0, len(f.readings))
	for _, r := range f.readings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

func (f *fakeStore) UpsertEnvironment(_ context.Context, reading models.EnvironmentalReading) (models.EnvironmentalReading, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.readings[reading.Location]
	if ok {
		reading.ID = existing.ID
	}
	f.readings[reading.Location] = reading
	return reading, !ok, nil
}

func (f *fakeStore) ListWisdom(context.Context) ([]models.WisdomEntry, error) {
	return f.wisdom, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestCreateStoryValidates(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		input  StoryInput
		want   error
	}{
		{"anonymous", "", StoryInput{Title: "t", Content: "c"}, ErrAuthRequired},
		{"missing title", "u1", StoryInput{Title: "  ", Content: "c"}, ErrTitleRequired},
		{"missing content", "u1", StoryInput{Title: "t"}, ErrContentRequired},
		{"bad category", "u1", StoryInput{Title: "t", Content: "c", Category: "urban"}, ErrUnknownCategory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateStory(ctx, tc.userID, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateStoryDefaultsAndPublishes(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := NewService(store, pub, nil)

	story, err := svc.CreateStory(context.Background(), "u1", StoryInput{
		Title:   "  Monsoon in Cherrapunji ",
		Content: "The rain never stopped.",
	})
	if err != nil {
		t.Fatalf("create story returned error: %v", err)
	}

	if story.Title != "Monsoon in Cherrapunji" || story.Category != models.DefaultStoryCategory {
		t.Fatalf("unexpected story %+v", story)
	}
	if story.Location != nil {
		t.Fatalf("expected no location, got %q", *story.Location)
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.ChangeInsert || pub.events[0].Collection != models.CollectionStories {
		t.Fatalf("expected insert event, got %+v", pub.events)
	}

	withLocation, err := svc.CreateStory(context.Background(), "u1", StoryInput{
		Title: "Hornbill festival", Content: "Dances", Category: "Tribal", Location: "Kohima",
	})
	if err != nil {
		t.Fatalf("create story returned error: %v", err)
	}
	if withLocation.Category != "tribal" || withLocation.Location == nil || *withLocation.Location != "Kohima" {
		t.Fatalf("unexpected story %+v", withLocation)
	}
}

func TestCreateStoryPublishFailureKeepsWrite(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &recordingPublisher{err: errors.New("redis down")}, nil)

	if _, err := svc.CreateStory(context.Background(), "u1", StoryInput{Title: "t", Content: "c"}); err != nil {
		t.Fatalf("expected write to succeed despite relay failure, got %v", err)
	}
	if len(store.stories) != 1 {
		t.Fatalf("expected story stored")
	}
}

func TestListStoriesUsesWallLimit(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	if _, err := svc.ListStories(context.Background()); err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if store.lastLimit != StoryWallLimit {
		t.Fatalf("expected limit %d, got %d", StoryWallLimit, store.lastLimit)
	}
}

func TestLikeStory(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	svc := NewService(store, pub, nil)

	story, _ := svc.CreateStory(context.Background(), "u1", StoryInput{Title: "t", Content: "c"})
	liked, err := svc.LikeStory(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("like returned error: %v", err)
	}
	if liked.LikesCount != 1 {
		t.Fatalf("expected one like, got %d", liked.LikesCount)
	}
	if last := pub.events[len(pub.events)-1]; last.Type != models.ChangeUpdate || last.RecordID != story.ID {
		t.Fatalf("expected update event, got %+v", last)
	}

	if _, err := svc.LikeStory(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordEnvironmentInsertThenUpdate(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(newFakeStore(), pub, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	reading := models.EnvironmentalReading{Location: "Western Ghats", AirQualityIndex: 40, ForestCoverPercentage: 62}
	first, err := svc.RecordEnvironment(context.Background(), reading)
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if first.ID == "" || !first.UpdatedAt.Equal(svc.now()) {
		t.Fatalf("unexpected stored reading %+v", first)
	}

	reading.AirQualityIndex = 45
	if _, err := svc.RecordEnvironment(context.Background(), reading); err != nil {
		t.Fatalf("record returned error: %v", err)
	}

	if len(pub.events) != 2 || pub.events[0].Type != models.ChangeInsert || pub.events[1].Type != models.ChangeUpdate {
		t.Fatalf("expected insert then update, got %+v", pub.events)
	}
	if pub.events[1].RecordID != first.ID {
		t.Fatalf("expected update to keep record id")
	}
}

func TestRecordEnvironmentRejectsBadInput(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil)

	if _, err := svc.RecordEnvironment(context.Background(), models.EnvironmentalReading{}); !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
	bad := models.EnvironmentalReading{Location: "x", ForestCoverPercentage: 120}
	if _, err := svc.RecordEnvironment(context.Background(), bad); !errors.Is(err, ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != (models.DashboardSummary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}

	summary := Summarize([]models.EnvironmentalReading{
		{Location: "Sundarbans", ForestCoverPercentage: 40.2, AirQualityIndex: 51, Temperature: 30.14, EndangeredSpecies: []string{"Bengal Tiger", "Olive Ridley"}},
		{Location: "Kaziranga", ForestCoverPercentage: 50.4, AirQualityIndex: 60, Temperature: 25.0, EndangeredSpecies: []string{"One-horned Rhino", "Bengal Tiger"}},
	})

	want := models.DashboardSummary{
		Locations:             2,
		AverageForestCover:    45.3,
		AverageAirQuality:     56,
		AverageTemperature:    27.6,
		EndangeredSpeciesSeen: 3,
	}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}
}

func TestFilterWisdom(t *testing.T) {
	entries := []models.WisdomEntry{
		{ID: "1", Title: "Breath of Pranayama", Content: "Control of breath", Category: "yoga", Tags: []string{"breathing"}},
		{ID: "2", Title: "Vipassana", Content: "Insight practice", Category: "meditation", Tags: []string{"Mindfulness"}},
		{ID: "3", Title: "Charaka Samhita", Content: "Foundations of Ayurveda", Category: "ayurveda"},
	}

	cases := []struct {
		category, search string
		want             []string
	}{
		{"all", "", []string{"1", "2", "3"}},
		{"", "", []string{"1", "2", "3"}},
		{"meditation", "", []string{"2"}},
		{"all", "BREATH", []string{"1"}},
		{"all", "mindful", []string{"2"}},
		{"all", "ayurveda", []string{"3"}},
		{"yoga", "insight", nil},
	}

	for _, tc := range cases {
		got := FilterWisdom(entries, tc.category, tc.search)
		if len(got) != len(tc.want) {
			t.Fatalf("category=%q search=%q: expected %v, got %+v", tc.category, tc.search, tc.want, got)
		}
		for i, id := range tc.want {
			if got[i].ID != id {
				t.Fatalf("category=%q search=%q: expected %v at %d, got %s", tc.category, tc.search, id, i, got[i].ID)
			}
		}
	}
}
