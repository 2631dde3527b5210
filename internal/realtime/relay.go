package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bharatverse/bharatverse/internal/models"
)

type relayEnvelope struct {
	Origin string             `json:"origin"`
	Event  models.ChangeEvent `json:"event"`
}

// RunRelay receives events published by other instances and delivers them locally. It
// blocks until ctx is cancelled or the hub is closed.
func (h *Hub) RunRelay(ctx context.Context) error {
	if h.redis == nil {
		return errors.New("realtime: relay requires a redis client")
	}

	pubsub := h.redis.Subscribe(ctx, h.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", h.channel, err)
	}

	h.mu.Lock()
	h.closeFns = append(h.closeFns, func() { _ = pubsub.Close() })
	h.mu.Unlock()
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			h.handleRelayed([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleRelayed(payload []byte) {
	var envelope relayEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warnw("ignoring malformed relayed change event", "error", err)
		return
	}
	if envelope.Origin == h.origin || !ValidCollection(envelope.Event.Collection) {
		return
	}
	h.deliver(envelope.Event)
}
