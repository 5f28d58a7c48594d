package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

func TestTypingRelayEvents(t *testing.T) {
	h := NewHub(zap.NewNop())
	handler := NewHandler(h, nil, nil, "secret", zap.NewNop())

	chatID := uuid.New()
	room := ChatRoom(chatID)
	typist := newTestClient(h)
	listener := newTestClient(h)
	h.join(room, typist)
	h.join(room, listener)

	handler.handleFrame(typist, clientFrame{Type: "typing", ChatID: chatID.String()})
	if env := receivedEvent(t, listener); env.Event != service.EventTyping {
		t.Errorf("event = %q, want %q", env.Event, service.EventTyping)
	}

	handler.handleFrame(typist, clientFrame{Type: "stop_typing", ChatID: chatID.String()})
	if env := receivedEvent(t, listener); env.Event != service.EventStopTyping {
		t.Errorf("event = %q, want %q", env.Event, service.EventStopTyping)
	}

	if len(typist.send) != 0 {
		t.Error("typing relay echoed back to the typist")
	}
}

func TestTypingOutsideRoomDropped(t *testing.T) {
	h := NewHub(zap.NewNop())
	handler := NewHandler(h, nil, nil, "secret", zap.NewNop())

	chatID := uuid.New()
	listener := newTestClient(h)
	h.join(ChatRoom(chatID), listener)

	outsider := newTestClient(h)
	handler.handleFrame(outsider, clientFrame{Type: "typing", ChatID: chatID.String()})

	if len(listener.send) != 0 {
		t.Error("typing from a client outside the room was relayed")
	}
}
