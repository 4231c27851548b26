// Package livefeed pushes match events to connected admin dashboards over
// WebSocket. Events arrive via Redis pub/sub, so every server instance fans
// out the same stream.
package livefeed

import (
	"encoding/json"

	"reunite/backend/internal/models"
	"reunite/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Hub tracks connected feed clients and broadcasts match events to all of
// them.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Storage *storage.Service
	Log     *logrus.Logger

	eventCh chan models.MatchEvent
}

func NewHub(s *storage.Service, log *logrus.Logger) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Storage:      s,
		Log:          log,
		eventCh:      make(chan models.MatchEvent, 16),
	}
}

// startPubSubListener subscribes to the match event topic and forwards every
// event into the hub's processing loop.
func (h *Hub) startPubSubListener() {
	go func() {
		pubsub := h.Storage.SubscribeMatchEvents()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.MatchEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.Log.WithError(err).Error("failed to decode match event")
				continue
			}
			h.eventCh <- ev
		}
	}()
}

// Run is the hub's main loop. Start it on its own goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()
	h.Log.Info("live feed hub started")

	for {
		select {
		case client := <-h.RegisterCh:
			h.Clients[client.GetSubscriberID()] = client
			h.Log.WithField("subscriber", client.GetSubscriberID()).Info("feed client connected")

		case client := <-h.UnregisterCh:
			if _, ok := h.Clients[client.GetSubscriberID()]; ok {
				delete(h.Clients, client.GetSubscriberID())
				client.Close()
				h.Log.WithField("subscriber", client.GetSubscriberID()).Info("feed client disconnected")
			}

		case ev := <-h.eventCh:
			h.Broadcast(ev)
		}
	}
}

// Broadcast delivers the event to every connected client. A client whose
// send buffer is full is dropped rather than allowed to stall the feed.
func (h *Hub) Broadcast(ev models.MatchEvent) {
	for id, client := range h.Clients {
		select {
		case client.GetSendChannel() <- ev:
		default:
			delete(h.Clients, id)
			client.Close()
			h.Log.WithField("subscriber", id).Warn("feed client too slow, dropped")
		}
	}
}
