package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/linkup-app/linkup/internal/auth"
	"github.com/linkup-app/linkup/internal/repository"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token is the gate, not the Origin header; mobile clients
	// don't send a meaningful one.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientFrame is what connected clients send: explicit room
// join/leave plus ephemeral typing signals.
type clientFrame struct {
	Type   string `json:"type"` // join | leave | typing | stop_typing
	Room   string `json:"room,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// Handler upgrades authenticated connections and runs their read
// loop. Room joins are validated against the store: a client may
// watch a chat room only as a member, so fan-out mirrors state the
// services already enforce.
type Handler struct {
	hub   *Hub
	chats repository.ChatRepository
	posts repository.PostRepository

	jwtSecret string
	logger    *zap.Logger
}

func NewHandler(hub *Hub, chats repository.ChatRepository, posts repository.PostRepository, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		hub:       hub,
		chats:     chats,
		posts:     posts,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Serve handles GET /v1/ws. Browsers cannot set headers on websocket
// dials, so the token also rides in ?token=.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, claims.UserID)
	// Every connection watches its own user room so direct events
	// (join_approved, join_rejected) arrive without an explicit join.
	h.hub.join(UserRoom(claims.UserID), client)

	go client.writePump()
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer c.Close()
	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		h.handleFrame(c, frame)
	}
}

func (h *Handler) handleFrame(c *Client, frame clientFrame) {
	// Store lookups here are bounded by the read deadline's pace,
	// not a request context; keep them short.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Type {
	case "join":
		if h.authorizeRoom(ctx, c, frame.Room) {
			h.hub.join(frame.Room, c)
		}
	case "leave":
		h.hub.leave(frame.Room, c)
	case "typing", "stop_typing":
		chatID, err := uuid.Parse(frame.ChatID)
		if err != nil {
			return
		}
		room := ChatRoom(chatID)
		// Joined means membership was already validated; typing from
		// outside the room is silently dropped.
		h.hub.mu.RLock()
		inRoom := c.rooms[room]
		h.hub.mu.RUnlock()
		if !inRoom {
			return
		}
		event := service.EventTyping
		if frame.Type == "stop_typing" {
			event = service.EventStopTyping
		}
		h.hub.broadcast(room, event, gin.H{
			"chat_id": chatID,
			"user_id": c.userID,
		}, c)
	}
}

// authorizeRoom checks the client may watch the requested room: chat
// rooms require membership, post rooms just an existing post (their
// events are public hints), user rooms only one's own.
func (h *Handler) authorizeRoom(ctx context.Context, c *Client, room string) bool {
	switch {
	case strings.HasPrefix(room, "chat:"):
		chatID, err := uuid.Parse(strings.TrimPrefix(room, "chat:"))
		if err != nil {
			return false
		}
		ok, err := h.chats.IsMember(ctx, chatID, c.userID)
		if err != nil {
			h.logger.Error("room membership check failed", zap.Error(err))
			return false
		}
		return ok
	case strings.HasPrefix(room, "post:"):
		postID, err := uuid.Parse(strings.TrimPrefix(room, "post:"))
		if err != nil {
			return false
		}
		post, err := h.posts.GetByID(ctx, postID)
		if err != nil {
			h.logger.Error("room post lookup failed", zap.Error(err))
			return false
		}
		return post != nil
	case strings.HasPrefix(room, "user:"):
		return room == UserRoom(c.userID)
	default:
		return false
	}
}
