package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/geo"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/repository"
)

// fakeStore is a single in-memory store shared by the per-interface
// fakes below, mirroring how the real repositories share one database.
// A mutex stands in for the store's transactional guarantees, which is
// exactly what the concurrency tests lean on.
type fakeStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]*models.User
	posts    map[uuid.UUID]*models.Post
	requests map[string]*models.JoinRequest
	chats    map[uuid.UUID]*models.GroupChat
	members  map[uuid.UUID]map[uuid.UUID]time.Time
	messages []models.Message

	nextMsgID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*models.User),
		posts:    make(map[uuid.UUID]*models.Post),
		requests: make(map[string]*models.JoinRequest),
		chats:    make(map[uuid.UUID]*models.GroupChat),
		members:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func requestKey(postID, userID uuid.UUID) string {
	return postID.String() + "|" + userID.String()
}

func (f *fakeStore) addUser(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeStore) addPost(p models.Post) *models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PostStatusOpen
	}
	f.posts[p.ID] = &p
	return &p
}

func (f *fakeStore) request(postID, userID uuid.UUID) *models.JoinRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestKey(postID, userID)]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (f *fakeStore) post(postID uuid.UUID) *models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// fakeUsers implements repository.UserRepository.
type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeUsers) Create(ctx context.Context, phone string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u := &models.User{ID: uuid.New(), Phone: phone, CreatedAt: time.Now()}
	f.s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f fakeUsers) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[userID]
	if !ok {
		return nil, nil
	}
	u.Name, u.Email = name, email
	cp := *u
	return &cp, nil
}

// fakePosts implements repository.PostRepository and geo.Index.
type fakePosts struct{ s *fakeStore }

func (f fakePosts) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *post
	cp.CreatedAt = time.Now()
	f.s.posts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakePosts) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.posts[postID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakePosts) ListByHost(ctx context.Context, hostID uuid.UUID) ([]models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Post, 0)
	for _, p := range f.s.posts {
		if p.HostID == hostID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f fakePosts) ListJoined(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Post, 0)
	for _, r := range f.s.requests {
		if r.UserID == userID && r.Status == models.RequestStatusApproved {
			if p, ok := f.s.posts[r.PostID]; ok {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (f fakePosts) CountCreatedSince(ctx context.Context, hostID uuid.UUID, since time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, p := range f.s.posts {
		if p.HostID == hostID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f fakePosts) ApproveRequest(ctx context.Context, postID, userID uuid.UUID) (*models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	req, ok := f.s.requests[requestKey(postID, userID)]
	if !ok || req.Status != models.RequestStatusPending {
		return nil, repository.ErrRequestNotPending
	}
	post, ok := f.s.posts[postID]
	if !ok {
		return nil, repository.ErrRequestNotPending
	}
	if post.ParticipantCount >= post.MaxParticipants {
		return nil, repository.ErrPostFull
	}
	req.Status = models.RequestStatusApproved
	post.ParticipantCount++
	if post.ParticipantCount >= post.MaxParticipants {
		post.Status = models.PostStatusFull
	}
	cp := *post
	return &cp, nil
}

func (f fakePosts) UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p, ok := f.s.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (f fakePosts) Delete(ctx context.Context, postID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.posts, postID)
	for key, r := range f.s.requests {
		if r.PostID == postID {
			delete(f.s.requests, key)
		}
	}
	// Chats are detached, not deleted.
	for _, c := range f.s.chats {
		if c.PostID != nil && *c.PostID == postID {
			c.PostID = nil
		}
	}
	return nil
}

func (f fakePosts) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, p := range f.s.posts {
		if (p.Status == models.PostStatusOpen || p.Status == models.PostStatusFull) && p.ExpiresAt.Before(now) {
			p.Status = models.PostStatusExpired
			n++
		}
	}
	return n, nil
}

func (f fakePosts) Nearby(ctx context.Context, center geo.Point, radiusKm float64, filters geo.Filters) ([]models.Post, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	box := geo.BoundingBox(center, radiusKm)
	out := make([]models.Post, 0)
	for _, p := range f.s.posts {
		if p.Status != models.PostStatusOpen {
			continue
		}
		if p.Lat < box.MinLat || p.Lat > box.MaxLat || p.Lng < box.MinLng || p.Lng > box.MaxLng {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// fakeRequests implements repository.JoinRequestRepository.
type fakeRequests struct{ s *fakeStore }

func (f fakeRequests) Create(ctx context.Context, postID, userID uuid.UUID, message string) (*models.JoinRequest, bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := requestKey(postID, userID)
	if _, exists := f.s.requests[key]; exists {
		return nil, false, nil
	}
	r := &models.JoinRequest{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		Message:   message,
		Status:    models.RequestStatusPending,
		CreatedAt: time.Now(),
	}
	f.s.requests[key] = r
	cp := *r
	return &cp, true, nil
}

func (f fakeRequests) GetByPostAndUser(ctx context.Context, postID, userID uuid.UUID) (*models.JoinRequest, error) {
	return f.s.request(postID, userID), nil
}

func (f fakeRequests) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.JoinRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.JoinRequest, 0)
	for _, r := range f.s.requests {
		if r.PostID == postID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f fakeRequests) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.JoinRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.JoinRequest, 0)
	for _, r := range f.s.requests {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f fakeRequests) Reject(ctx context.Context, postID, userID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.requests[requestKey(postID, userID)]
	if !ok || r.Status != models.RequestStatusPending {
		return repository.ErrRequestNotPending
	}
	r.Status = models.RequestStatusRejected
	return nil
}

// fakeChats implements repository.ChatRepository.
type fakeChats struct{ s *fakeStore }

func (f fakeChats) EnsureForPost(ctx context.Context, post *models.Post) (*models.GroupChat, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.chats {
		if c.PostID != nil && *c.PostID == post.ID {
			cp := *c
			return &cp, nil
		}
	}
	postID := post.ID
	c := &models.GroupChat{
		ID:        uuid.New(),
		PostID:    &postID,
		Title:     post.Title,
		Category:  post.Category,
		EventAt:   post.EventAt,
		ExpiresAt: post.ExpiresAt,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	f.s.chats[c.ID] = c
	f.s.members[c.ID] = make(map[uuid.UUID]time.Time)
	cp := *c
	return &cp, nil
}

func (f fakeChats) GetByID(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.chats[chatID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f fakeChats) GetByPostID(ctx context.Context, postID uuid.UUID) (*models.GroupChat, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.chats {
		if c.PostID != nil && *c.PostID == postID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeChats) AddMember(ctx context.Context, chatID, userID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.members[chatID] == nil {
		f.s.members[chatID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := f.s.members[chatID][userID]; !ok {
		f.s.members[chatID][userID] = time.Now()
	}
	return nil
}

func (f fakeChats) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	_, ok := f.s.members[chatID][userID]
	return ok, nil
}

func (f fakeChats) ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.ChatMember, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.ChatMember, 0)
	for userID, joined := range f.s.members[chatID] {
		out = append(out, models.ChatMember{ChatID: chatID, UserID: userID, JoinedAt: joined})
	}
	return out, nil
}

func (f fakeChats) ListByMember(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.GroupChat, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.GroupChat, 0)
	for chatID, members := range f.s.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		c := f.s.chats[chatID]
		if c != nil && c.IsActive && c.ExpiresAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f fakeChats) DeactivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for _, c := range f.s.chats {
		if c.IsActive && c.ExpiresAt.Before(now) {
			c.IsActive = false
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// fakeMessages implements repository.MessageRepository.
type fakeMessages struct{ s *fakeStore }

func (f fakeMessages) Create(ctx context.Context, chatID, senderID uuid.UUID, body string) (*models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.nextMsgID++
	msg := models.Message{
		ID:        f.s.nextMsgID,
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	f.s.messages = append(f.s.messages, msg)
	cp := msg
	return &cp, nil
}

func (f fakeMessages) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Message, 0)
	for _, m := range f.s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

var (
	_ repository.UserRepository        = fakeUsers{}
	_ repository.PostRepository        = fakePosts{}
	_ geo.Index                        = fakePosts{}
	_ repository.JoinRequestRepository = fakeRequests{}
	_ repository.ChatRepository        = fakeChats{}
	_ repository.MessageRepository     = fakeMessages{}
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Room  string
	Event string
}

func (p *recordingPublisher) record(room, event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Room: room, Event: event})
}

func (p *recordingPublisher) PublishToChat(chatID uuid.UUID, event string, payload any) {
	p.record("chat:"+chatID.String(), event)
}

func (p *recordingPublisher) PublishToPost(postID uuid.UUID, event string, payload any) {
	p.record("post:"+postID.String(), event)
}

func (p *recordingPublisher) PublishToUser(userID uuid.UUID, event string, payload any) {
	p.record("user:"+userID.String(), event)
}

func (p *recordingPublisher) has(room, event string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Room == room && e.Event == event {
			return true
		}
	}
	return false
}

// recordingNotifier captures best-effort notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	notified []uuid.UUID
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, userID)
}
