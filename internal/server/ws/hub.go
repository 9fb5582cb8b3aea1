// Package ws maintains live websocket sessions, keyed by user unique, and
// forwards events published on the per-user notification channels to the
// matching resident sessions.
package ws

import (
	"context"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/mzhurin/convo/internal/logging"
	"github.com/mzhurin/convo/internal/server/notify"
)

// Hub tracks the set of live sessions per user. A user may hold several
// concurrent sessions (several devices); an event is delivered to all of
// them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	rdb    *redis.Client
	logger logging.Logger
}

func NewHub(rdb *redis.Client, logger logging.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		logger:     logger.With("module", "ws_hub"),
	}
}

// Run owns the session maps and the pub/sub subscription until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.runSubscriber(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case <-ctx.Done():
			return
		}
	}
}

// Register attaches a session and starts its write pump.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	clients, ok := h.sessions[client.unique]
	if !ok {
		clients = make(map[*Client]bool)
		h.sessions[client.unique] = clients
	}
	clients[client] = true
	h.mu.Unlock()
	h.logger.Info(context.Background(), "session registered", "unique", client.unique)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if clients, ok := h.sessions[client.unique]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.sessions, client.unique)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Info(context.Background(), "session unregistered", "unique", client.unique)
}

// Deliver hands a raw event payload to every live session of one user.
// Sessions that cannot keep up are dropped rather than blocking delivery.
func (h *Hub) Deliver(unique string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[unique] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; the read pump will unregister it on close.
			go client.conn.Close()
		}
	}
}

// SessionCount reports the number of live sessions for a user.
func (h *Hub) SessionCount(unique string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[unique])
}

// runSubscriber forwards events from the per-user pub/sub channels into the
// resident sessions. The channel name carries the target unique.
func (h *Hub) runSubscriber(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, notify.ChannelForUser("*"))
	defer pubsub.Close()

	prefix := notify.ChannelForUser("")
	for {
		select {
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			unique := strings.TrimPrefix(msg.Channel, prefix)
			h.Deliver(unique, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}
