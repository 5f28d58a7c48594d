package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/geo"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/repository"
	"go.uber.org/zap"
)

const (
	// ExpiryBufferMinutes keeps the chat alive past the event's end
	// for wrap-up conversation.
	ExpiryBufferMinutes = 30

	defaultDurationMinutes = 60
	maxRadiusKm            = 50
	defaultRadiusKm        = 15
	minCapacity            = 2
)

// PostService owns the post lifecycle: creation under quota, nearby
// discovery, cancellation, deletion, and the derived status rules.
type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	chats    repository.ChatRepository
	geoIndex geo.Index

	freePostLimit int

	clock  func() time.Time
	logger *zap.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	chats repository.ChatRepository,
	geoIndex geo.Index,
	freePostLimit int,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		posts:         posts,
		users:         users,
		chats:         chats,
		geoIndex:      geoIndex,
		freePostLimit: freePostLimit,
		clock:         time.Now,
		logger:        logger,
	}
}

// CreatePostInput carries the host-supplied attributes.
type CreatePostInput struct {
	Title           string
	Description     string
	Category        string
	Lat             float64
	Lng             float64
	AddressText     string
	EventAt         time.Time
	DurationMinutes int
	CostPerPerson   float64
	MaxParticipants int
}

// Create validates the input, enforces the free-tier quota, computes
// the expiry, and inserts the post with the host as its first
// participant.
func (s *PostService) Create(ctx context.Context, hostID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	now := s.clock()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperr.New(apperr.CodeValidationFailed, "title is required")
	}
	if !models.PostCategories[in.Category] {
		return nil, apperr.New(apperr.CodeValidationFailed, "unknown category")
	}
	if !(geo.Point{Lat: in.Lat, Lng: in.Lng}).Valid() {
		return nil, apperr.New(apperr.CodeValidationFailed, "invalid coordinates")
	}
	if !in.EventAt.After(now) {
		return nil, apperr.New(apperr.CodeValidationFailed, "event time must be in the future")
	}
	if in.MaxParticipants < minCapacity {
		return nil, apperr.New(apperr.CodeValidationFailed, "capacity must be at least 2")
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultDurationMinutes
	}
	if in.CostPerPerson < 0 {
		return nil, apperr.New(apperr.CodeValidationFailed, "cost cannot be negative")
	}

	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not create post", err)
	}
	if host == nil {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if !host.HasActiveSubscription(now) {
		// The quota is a count of rows created since the month began,
		// so it rolls over at each month boundary without a reset job.
		y, m, _ := now.UTC().Date()
		monthStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		created, err := s.posts.CountCreatedSince(ctx, hostID, monthStart)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeUnavailable, "could not create post", err)
		}
		if created >= s.freePostLimit {
			return nil, apperr.New(apperr.CodeQuotaExceeded, "free plan limit reached, upgrade to post more")
		}
	}

	post := &models.Post{
		ID:              uuid.New(),
		HostID:          hostID,
		Title:           in.Title,
		Description:     strings.TrimSpace(in.Description),
		Category:        in.Category,
		Lat:             in.Lat,
		Lng:             in.Lng,
		AddressText:     strings.TrimSpace(in.AddressText),
		EventAt:         in.EventAt,
		DurationMinutes: in.DurationMinutes,
		ExpiresAt:       in.EventAt.Add(time.Duration(in.DurationMinutes+ExpiryBufferMinutes) * time.Minute),
		CostPerPerson:   in.CostPerPerson,
		MaxParticipants: in.MaxParticipants,
		// The host takes the first seat.
		ParticipantCount: 1,
		Status:           models.PostStatusOpen,
	}

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not create post", err)
	}

	s.logger.Info("post created",
		zap.String("post_id", created.ID.String()),
		zap.String("host_id", hostID.String()),
		zap.Time("expires_at", created.ExpiresAt),
	)
	return created, nil
}

// EffectiveStatus derives the status a reader should act on. The
// stored status lags by at most one sweep interval, so every
// enforcement check goes through here instead of trusting the row.
func EffectiveStatus(p *models.Post, now time.Time) models.PostStatus {
	if p.Status == models.PostStatusCancelled {
		return models.PostStatusCancelled
	}
	if now.After(p.ExpiresAt) {
		return models.PostStatusExpired
	}
	return p.Status
}

// PostDetail is a post plus the id of its group chat once approvals
// have created one.
type PostDetail struct {
	models.Post
	ChatID *uuid.UUID `json:"chat_id,omitempty"`
}

// Get returns the post with its effective status applied.
func (s *PostService) Get(ctx context.Context, postID uuid.UUID) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch post", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	post.Status = EffectiveStatus(post, s.clock())

	detail := &PostDetail{Post: *post}
	chat, err := s.chats.GetByPostID(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch post", err)
	}
	if chat != nil {
		detail.ChatID = &chat.ID
	}
	return detail, nil
}

// Nearby delegates to the geospatial index, capping the radius to
// bound result size.
func (s *PostService) Nearby(ctx context.Context, center geo.Point, radiusKm float64, f geo.Filters) ([]models.Post, error) {
	if !center.Valid() {
		return nil, apperr.New(apperr.CodeValidationFailed, "invalid coordinates")
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	if radiusKm > maxRadiusKm {
		radiusKm = maxRadiusKm
	}

	posts, err := s.geoIndex.Nearby(ctx, center, radiusKm, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not search posts", err)
	}

	now := s.clock()
	open := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		// The index filters on stored status; re-derive so a post the
		// sweep has not reached yet never shows as joinable.
		if EffectiveStatus(&p, now) == models.PostStatusOpen {
			p.Status = models.PostStatusOpen
			open = append(open, p)
		}
	}
	return open, nil
}

// Mine returns the posts the user hosts.
func (s *PostService) Mine(ctx context.Context, hostID uuid.UUID) ([]models.Post, error) {
	posts, err := s.posts.ListByHost(ctx, hostID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list posts", err)
	}
	s.applyEffectiveStatus(posts)
	return posts, nil
}

// History returns posts the user joined via an approved request.
func (s *PostService) History(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	posts, err := s.posts.ListJoined(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list history", err)
	}
	s.applyEffectiveStatus(posts)
	return posts, nil
}

// Cancel is the host's explicit terminal transition. Allowed from any
// non-terminal state; never allowed out of expired or cancelled.
func (s *PostService) Cancel(ctx context.Context, postID, requesterID uuid.UUID) error {
	post, err := s.hostOwned(ctx, postID, requesterID)
	if err != nil {
		return err
	}
	if EffectiveStatus(post, s.clock()).Terminal() {
		return apperr.New(apperr.CodeInvalidState, "post is already closed")
	}
	if err := s.posts.UpdateStatus(ctx, postID, models.PostStatusCancelled); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not cancel post", err)
	}
	s.logger.Info("post cancelled", zap.String("post_id", postID.String()))
	return nil
}

// Delete removes a post. Pending and processed join requests cascade
// with the row; a chat created by earlier approvals survives detached
// so participants keep their conversation.
func (s *PostService) Delete(ctx context.Context, postID, requesterID uuid.UUID) error {
	if _, err := s.hostOwned(ctx, postID, requesterID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not delete post", err)
	}
	s.logger.Info("post deleted", zap.String("post_id", postID.String()))
	return nil
}

func (s *PostService) hostOwned(ctx context.Context, postID, requesterID uuid.UUID) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch post", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	if post.HostID != requesterID {
		return nil, apperr.New(apperr.CodeForbidden, "only the host may do this")
	}
	return post, nil
}

func (s *PostService) applyEffectiveStatus(posts []models.Post) {
	now := s.clock()
	for i := range posts {
		posts[i].Status = EffectiveStatus(&posts[i], now)
	}
}
