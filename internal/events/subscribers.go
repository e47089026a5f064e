package events

import (
	"encoding/json"

	"github.com/asaskevich/EventBus"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	syncengine "github.com/carritosync/carrito/internal/sync"
	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

// SSEPublisher is the slice of sse.Server the subscriber needs.
type SSEPublisher interface {
	Publish(topic string, event *sse.Event)
}

// Subscriber bridges internal bus events to the UI: every sync state
// transition is pushed on the "sync" SSE stream so the status indicator
// updates without blocking the user.
type Subscriber struct {
	log zerolog.Logger
	bus EventBus.Bus
	sse SSEPublisher
}

func NewSubscribers(log logger.Logger, bus EventBus.Bus, sse SSEPublisher) *Subscriber {
	s := &Subscriber{
		log: log.With().Str("module", "events").Logger(),
		bus: bus,
		sse: sse,
	}

	s.Register()

	return s
}

func (s *Subscriber) Register() {
	if err := s.bus.Subscribe(syncengine.EventTopic, s.publishSyncState); err != nil {
		s.log.Error().Err(err).Str("topic", syncengine.EventTopic).Msg("Failed to subscribe to sync events")
	}
}

func (s *Subscriber) publishSyncState(state domain.SyncState) {
	s.log.Trace().
		Str("status", string(state.Status)).
		Bool("pending", state.PendingChanges).
		Msg("Sync state transition")

	if s.sse == nil {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode sync state for SSE")
		return
	}

	s.sse.Publish("sync", &sse.Event{Data: data})
}
