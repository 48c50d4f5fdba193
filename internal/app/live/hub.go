/*
Package live pushes session changes to connected views over WebSocket.

A Hub watches one session store and broadcasts a fresh snapshot to every
connected Client whenever the session changes, so open views re-render after a
login, a logout or a 401 elsewhere without polling /session.
*/
package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blogclient/internal/app/session"
	"blogclient/internal/pkg/logx"
)

// MessageType identifies a pushed message.
type MessageType string

const (
	// TypeSession carries the rendered session snapshot.
	TypeSession MessageType = "SESSION"
)

// Message is the envelope written to every client.
type Message struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// Source is the session store the hub watches.
type Source interface {
	Snapshot() session.Session
	Changed() <-chan struct{}
}

// Render turns a snapshot into the payload clients receive.
type Render func(session.Session) any

// Hub fans session snapshots out to the registered clients.
type Hub struct {
	source Source
	render Render

	// clients is only touched by Run.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}

	logger zerolog.Logger
}

// NewHub creates a hub over source. Call Run to start it.
func NewHub(source Source, render Render) *Hub {
	return &Hub{
		source:     source,
		render:     render,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "LiveHub").Logger(),
	}
}

// Stop ends the Run loop and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register hands c to the hub, which immediately sends it the current session.
// It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	defer func() {
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		close(h.done)
		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	// Take the channel before the snapshot so no change slips between them.
	changed := h.source.Changed()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Info().Int("total_clients", len(h.clients)).Msg("Client connected.")

			if msg, ok := h.snapshot(); ok {
				h.deliver(c, msg)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected.")
			}

		case <-changed:
			changed = h.source.Changed()

			msg, ok := h.snapshot()
			if !ok {
				continue
			}
			for c := range h.clients {
				h.deliver(c, msg)
			}

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) snapshot() ([]byte, bool) {
	msg := Message{
		Type:      TypeSession,
		Payload:   h.render(h.source.Snapshot()),
		Timestamp: time.Now().UnixMilli(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling session snapshot.")
		return nil, false
	}
	return b, true
}

// deliver queues msg for c, dropping clients that cannot keep up.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn().Msg("Client send channel full, disconnecting.")
		delete(h.clients, c)
		close(c.send)
	}
}
