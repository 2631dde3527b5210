package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bharatverse/bharatverse/internal/models"
)

func storyEvent(id string) models.ChangeEvent {
	return models.ChangeEvent{
		Collection: models.CollectionStories,
		Type:       models.ChangeInsert,
		RecordID:   id,
		At:         time.Now().UTC(),
	}
}

func receive(t *testing.T, sub *Subscription) models.ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for change event")
	}
	return models.ChangeEvent{}
}

func TestHubDeliversToCollectionSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	stories, err := hub.Subscribe(models.CollectionStories)
	if err != nil {
		t.Fatalf("subscribe returned error: %v", err)
	}
	wisdom, _ := hub.Subscribe(models.CollectionWisdom)

	if err := hub.Publish(context.Background(), storyEvent("s-1")); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}

	if got := receive(t, stories); got.RecordID != "s-1" || got.Type != models.ChangeInsert {
		t.Fatalf("unexpected event %+v", got)
	}
	select {
	case event := <-wisdom.C:
		t.Fatalf("wisdom subscriber received story event %+v", event)
	default:
	}
}

func TestHubRejectsUnknownCollection(t *testing.T) {
	hub := NewHub()
	if _, err := hub.Subscribe("roles"); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	if err := hub.Publish(context.Background(), models.ChangeEvent{Collection: "roles"}); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	slow, _ := hub.Subscribe(models.CollectionStories)

	total := subscriberBuffer + 5
	for i := 0; i < total; i++ {
		if err := hub.Publish(context.Background(), storyEvent("s")); err != nil {
			t.Fatalf("publish returned error: %v", err)
		}
	}

	if got := hub.Dropped(); got != 5 {
		t.Fatalf("expected 5 dropped events, got %d", got)
	}
	if len(slow.C) != subscriberBuffer {
		t.Fatalf("expected full buffer, got %d", len(slow.C))
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub, _ := hub.Subscribe(models.CollectionEnvironment)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel")
	}
	if err := hub.Publish(context.Background(), models.ChangeEvent{Collection: models.CollectionEnvironment}); err != nil {
		t.Fatalf("publish after unsubscribe returned error: %v", err)
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	sub, _ := hub.Subscribe(models.CollectionStories)

	hub.Close()
	if _, ok := <-sub.C; ok {
		t.Fatalf("expected subscription to end on close")
	}
	sub.Close()

	late, err := hub.Subscribe(models.CollectionStories)
	if err != nil {
		t.Fatalf("subscribe after close returned error: %v", err)
	}
	if _, ok := <-late.C; ok {
		t.Fatalf("expected subscription on closed hub to be closed")
	}
}

func TestHubRelayedEventsSkipOwnOrigin(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	sub, _ := hub.Subscribe(models.CollectionStories)

	own, _ := json.Marshal(relayEnvelope{Origin: hub.origin, Event: storyEvent("own")})
	hub.handleRelayed(own)
	hub.handleRelayed([]byte("not json"))

	remote, _ := json.Marshal(relayEnvelope{Origin: "other-instance", Event: storyEvent("remote")})
	hub.handleRelayed(remote)

	if got := receive(t, sub); got.RecordID != "remote" {
		t.Fatalf("expected only remote event, got %+v", got)
	}
}

func TestHubRelayThroughRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	channel := "bharatverse:test:" + time.Now().Format("150405.000000")
	publisher := NewHub(WithRedis(client, channel))
	receiver := NewHub(WithRedis(client, channel))
	defer publisher.Close()
	defer receiver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiver.RunRelay(ctx)

	sub, _ := receiver.Subscribe(models.CollectionStories)
	time.Sleep(200 * time.Millisecond)

	if err := publisher.Publish(ctx, storyEvent("relayed")); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if got := receive(t, sub); got.RecordID != "relayed" {
		t.Fatalf("unexpected relayed event %+v", got)
	}
}
