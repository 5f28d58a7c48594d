// Package realtime is the per-process fan-out layer: rooms keyed by
// chat, post, or user, with websocket clients joining and leaving
// explicitly. Room membership here is non-authoritative — it is lost
// on disconnect and rebuilt on reconnect, and it never substitutes
// for the authorization the services perform.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Envelope is the wire shape of every server-to-client event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func ChatRoom(chatID uuid.UUID) string { return "chat:" + chatID.String() }
func PostRoom(postID uuid.UUID) string { return "post:" + postID.String() }
func UserRoom(userID uuid.UUID) string { return "user:" + userID.String() }

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]bool),
		logger: logger,
	}
}

func (h *Hub) join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
}

func (h *Hub) leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// remove detaches a client from every room it joined and marks it
// closed so in-flight broadcasts stop addressing it. Called once when
// the connection dies.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.closed = true
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
}

// broadcast sends an envelope to every client in the room, optionally
// skipping one (typing relays exclude the typist). Sends stay under
// the read lock: the selects never block and send channels are never
// closed, so a concurrent disconnect cannot panic a publisher. A
// client whose send buffer is full is dropped rather than allowed to
// stall the room.
func (h *Hub) broadcast(room, event string, data any, except *Client) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c == except || c.closed {
			continue
		}
		select {
		case c.send <- payload:
		default:
			go c.Close()
		}
	}
}

// PublishToChat, PublishToPost, and PublishToUser are the publishing
// surface the services and scheduler see.

func (h *Hub) PublishToChat(chatID uuid.UUID, event string, payload any) {
	h.broadcast(ChatRoom(chatID), event, payload, nil)
}

func (h *Hub) PublishToPost(postID uuid.UUID, event string, payload any) {
	h.broadcast(PostRoom(postID), event, payload, nil)
}

func (h *Hub) PublishToUser(userID uuid.UUID, event string, payload any) {
	h.broadcast(UserRoom(userID), event, payload, nil)
}
