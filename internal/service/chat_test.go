package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/models"
	"go.uber.org/zap"
)

func newTestChatService(store *fakeStore) (*ChatService, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewChatService(fakeChats{store}, fakeMessages{store}, pub, zap.NewNop())
	svc.clock = func() time.Time { return testNow }
	return svc, pub
}

func chatWithMember(t *testing.T, store *fakeStore, userID uuid.UUID, expiresAt time.Time) *models.GroupChat {
	t.Helper()
	post := store.addPost(models.Post{
		HostID:    uuid.New(),
		Title:     "Trivia night",
		Category:  "other",
		EventAt:   expiresAt.Add(-time.Hour),
		ExpiresAt: expiresAt,
	})
	chat, err := fakeChats{store}.EnsureForPost(context.Background(), post)
	if err != nil {
		t.Fatalf("EnsureForPost: %v", err)
	}
	if err := (fakeChats{store}).AddMember(context.Background(), chat.ID, userID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return chat
}

func TestSendMessage(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	svc, pub := newTestChatService(store)

	msg, err := svc.SendMessage(context.Background(), chat.ID, userID, "  anyone here yet?  ")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Body != "anyone here yet?" {
		t.Errorf("body = %q, want trimmed", msg.Body)
	}
	if msg.ID == 0 {
		t.Error("message not assigned an id")
	}
	if !pub.has("chat:"+chat.ID.String(), EventNewMessage) {
		t.Error("new_message not published to the chat room")
	}
}

func TestSendMessageNotMember(t *testing.T) {
	store := newFakeStore()
	chat := chatWithMember(t, store, uuid.New(), testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	_, err := svc.SendMessage(context.Background(), chat.ID, uuid.New(), "hi")
	if !apperr.IsCode(err, apperr.CodeNotMember) {
		t.Fatalf("err = %v, want NOT_MEMBER", err)
	}
}

func TestSendMessageMissingChat(t *testing.T) {
	svc, _ := newTestChatService(newFakeStore())
	_, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "hi")
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestSendMessageExpired(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()

	t.Run("past expiry timestamp", func(t *testing.T) {
		chat := chatWithMember(t, store, userID, testNow.Add(-time.Minute))
		svc, _ := newTestChatService(store)
		_, err := svc.SendMessage(context.Background(), chat.ID, userID, "hi")
		if !apperr.IsCode(err, apperr.CodeExpired) {
			t.Fatalf("err = %v, want EXPIRED", err)
		}
	})

	t.Run("deactivated by sweep", func(t *testing.T) {
		chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
		store.mu.Lock()
		store.chats[chat.ID].IsActive = false
		store.mu.Unlock()

		svc, _ := newTestChatService(store)
		_, err := svc.SendMessage(context.Background(), chat.ID, userID, "hi")
		if !apperr.IsCode(err, apperr.CodeExpired) {
			t.Fatalf("err = %v, want EXPIRED", err)
		}
	})
}

func TestSendMessageEmptyBody(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	_, err := svc.SendMessage(context.Background(), chat.ID, userID, "   \n\t ")
	if !apperr.IsCode(err, apperr.CodeValidationFailed) {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestSendMessageTruncates(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	msg, err := svc.SendMessage(context.Background(), chat.ID, userID, strings.Repeat("ü", maxMessageRunes+50))
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := len([]rune(msg.Body)); got != maxMessageRunes {
		t.Errorf("body runes = %d, want %d", got, maxMessageRunes)
	}
}

func TestMessagesReadableAfterExpiry(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	if _, err := svc.SendMessage(context.Background(), chat.ID, userID, "see you there"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Expire the chat; history stays readable for members.
	store.mu.Lock()
	store.chats[chat.ID].IsActive = false
	store.chats[chat.ID].ExpiresAt = testNow.Add(-time.Minute)
	store.mu.Unlock()

	messages, err := svc.Messages(context.Background(), chat.ID, userID)
	if err != nil {
		t.Fatalf("Messages after expiry: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "see you there" {
		t.Fatalf("got %d messages, want the one sent earlier", len(messages))
	}
}

func TestMessagesNotMember(t *testing.T) {
	store := newFakeStore()
	chat := chatWithMember(t, store, uuid.New(), testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	_, err := svc.Messages(context.Background(), chat.ID, uuid.New())
	if !apperr.IsCode(err, apperr.CodeNotMember) {
		t.Fatalf("err = %v, want NOT_MEMBER", err)
	}
}

func TestMessagesOrderedOldestFirst(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	svc, _ := newTestChatService(store)

	for _, body := range []string{"first", "second", "third"} {
		if _, err := svc.SendMessage(context.Background(), chat.ID, userID, body); err != nil {
			t.Fatalf("SendMessage %q: %v", body, err)
		}
	}

	messages, err := svc.Messages(context.Background(), chat.ID, userID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(messages), len(want))
	}
	for i, body := range want {
		if messages[i].Body != body {
			t.Errorf("messages[%d] = %q, want %q", i, messages[i].Body, body)
		}
	}
}

func TestListMine(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	active := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	chatWithMember(t, store, userID, testNow.Add(-time.Hour))
	chatWithMember(t, store, uuid.New(), testNow.Add(time.Hour))

	svc, _ := newTestChatService(store)
	chats, err := svc.ListMine(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != active.ID {
		t.Fatalf("got %d chats, want only the active one the user belongs to", len(chats))
	}
}

func TestMembers(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	other := uuid.New()
	chat := chatWithMember(t, store, userID, testNow.Add(time.Hour))
	if err := (fakeChats{store}).AddMember(context.Background(), chat.ID, other); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	svc, _ := newTestChatService(store)
	members, err := svc.Members(context.Background(), chat.ID, userID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("got %d members, want 2", len(members))
	}

	_, err = svc.Members(context.Background(), chat.ID, uuid.New())
	if !apperr.IsCode(err, apperr.CodeNotMember) {
		t.Fatalf("Members as stranger err = %v, want NOT_MEMBER", err)
	}
}
