package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage"
	"github.com/finledger/finledger-be/internal/websocket"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	Record(ctx context.Context, eventType, level, message string, userID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService records account activity and pushes it to connected
// websocket clients.
type EventService struct {
	store storage.Store
	hub   *websocket.Hub
}

// NewEventService creates a new EventService. The hub may be nil when
// no live feed is wanted (tests).
func NewEventService(store storage.Store, hub *websocket.Hub) *EventService {
	return &EventService{store: store, hub: hub}
}

// Record persists a new event and broadcasts it on the hub.
func (s *EventService) Record(ctx context.Context, eventType, level, message string, userID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return err
	}

	s.broadcast(event)
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return s.store.RecentEvents(ctx, limit)
}

func (s *EventService) broadcast(event models.Event) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(websocket.Message{Action: "event", Payload: event})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode event for broadcast")
		return
	}
	if event.UserID != nil {
		s.hub.BroadcastTo(*event.UserID, data)
		return
	}
	s.hub.Broadcast <- data
}

// Compile-time check: EventService implements EventServiceProvider.
var _ EventServiceProvider = (*EventService)(nil)
