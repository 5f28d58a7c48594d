package service

import "github.com/google/uuid"

// EventPublisher is the realtime fan-out as seen from the services.
// Publishing is fire-and-forget: events are hints for connected
// clients, never the source of truth, so no errors come back.
type EventPublisher interface {
	PublishToChat(chatID uuid.UUID, event string, payload any)
	PublishToPost(postID uuid.UUID, event string, payload any)
	PublishToUser(userID uuid.UUID, event string, payload any)
}

// Realtime event vocabulary. Payloads carry just enough identifiers
// for the client to re-fetch authoritative state.
const (
	EventNewMessage   = "new_message"
	EventTyping       = "chat:typing"
	EventStopTyping   = "chat:stop_typing"
	EventJoinRequest  = "join_request"
	EventJoinApproved = "join_approved"
	EventJoinRejected = "join_rejected"
	EventChatExpired  = "chat_expired"
)

// NopPublisher drops every event. Used when the hub is not wired,
// and as the default in tests.
type NopPublisher struct{}

func (NopPublisher) PublishToChat(uuid.UUID, string, any) {}
func (NopPublisher) PublishToPost(uuid.UUID, string, any) {}
func (NopPublisher) PublishToUser(uuid.UUID, string, any) {}
