package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/notify"
	"github.com/linkup-app/linkup/internal/repository"
	"go.uber.org/zap"
)

const maxRequestMessageLen = 300

// RequestService implements the join-request protocol: request,
// list, approve, reject. Approval is where the capacity invariant
// lives, backed by the store's transactional ApproveRequest.
type RequestService struct {
	posts    repository.PostRepository
	requests repository.JoinRequestRepository
	chats    repository.ChatRepository

	events   EventPublisher
	notifier notify.Notifier

	clock  func() time.Time
	logger *zap.Logger
}

func NewRequestService(
	posts repository.PostRepository,
	requests repository.JoinRequestRepository,
	chats repository.ChatRepository,
	events EventPublisher,
	notifier notify.Notifier,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		posts:    posts,
		requests: requests,
		chats:    chats,
		events:   events,
		notifier: notifier,
		clock:    time.Now,
		logger:   logger,
	}
}

// RequestToJoin files a pending request from userID against the post.
// One request per (post, user), ever: a rejected user cannot
// resubmit.
func (s *RequestService) RequestToJoin(ctx context.Context, postID, userID uuid.UUID, message string) (*models.JoinRequest, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not send request", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	if EffectiveStatus(post, s.clock()) != models.PostStatusOpen {
		return nil, apperr.New(apperr.CodeInvalidState, "post is not open for requests")
	}
	if post.HostID == userID {
		return nil, apperr.New(apperr.CodeSelfJoin, "you cannot join your own post")
	}

	message = strings.TrimSpace(message)
	if runes := []rune(message); len(runes) > maxRequestMessageLen {
		message = string(runes[:maxRequestMessageLen])
	}

	req, inserted, err := s.requests.Create(ctx, postID, userID, message)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not send request", err)
	}
	if !inserted {
		return nil, apperr.New(apperr.CodeAlreadyRequested, "you already have a request for this post")
	}

	s.events.PublishToPost(postID, EventJoinRequest, map[string]any{
		"post_id": postID,
		"user_id": userID,
	})
	s.notifier.Notify(ctx, post.HostID, "New join request",
		"Someone wants to join "+post.Title, map[string]string{
			"type":    EventJoinRequest,
			"post_id": postID.String(),
		})

	return req, nil
}

// List returns all requests for a post, oldest first. Host only.
func (s *RequestService) List(ctx context.Context, postID, requesterID uuid.UUID) ([]models.JoinRequest, error) {
	if _, err := s.hostOwned(ctx, postID, requesterID); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list requests", err)
	}
	return requests, nil
}

// MyRequest returns the caller's own request for the post, or nil.
// Clients poll this while waiting on the host.
func (s *RequestService) MyRequest(ctx context.Context, postID, userID uuid.UUID) (*models.JoinRequest, error) {
	req, err := s.requests.GetByPostAndUser(ctx, postID, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch request", err)
	}
	return req, nil
}

// MyRequests returns all of the caller's requests, newest first.
func (s *RequestService) MyRequests(ctx context.Context, userID uuid.UUID) ([]models.JoinRequest, error) {
	requests, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not list requests", err)
	}
	return requests, nil
}

// Approve accepts a pending request. On success the participant count
// has been atomically incremented, the post flipped to full if this
// took the last seat, and the approved user is in the post's chat
// (created on first approval). A loser of the capacity race gets
// PostFull and the request stays pending.
func (s *RequestService) Approve(ctx context.Context, postID, userID, requesterID uuid.UUID) (*models.GroupChat, error) {
	post, err := s.hostOwned(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}
	if EffectiveStatus(post, s.clock()).Terminal() {
		return nil, apperr.New(apperr.CodeInvalidState, "post is no longer active")
	}

	req, err := s.requests.GetByPostAndUser(ctx, postID, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not approve request", err)
	}
	if req == nil {
		return nil, apperr.New(apperr.CodeNotFound, "request not found")
	}
	if req.Status != models.RequestStatusPending {
		return nil, apperr.New(apperr.CodeInvalidState, "request already processed")
	}

	updated, err := s.posts.ApproveRequest(ctx, postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRequestNotPending):
			// Lost a race against another call processing the same
			// request.
			return nil, apperr.New(apperr.CodeInvalidState, "request already processed")
		case errors.Is(err, repository.ErrPostFull):
			return nil, apperr.New(apperr.CodePostFull, "post is already full")
		default:
			return nil, apperr.Wrap(apperr.CodeUnavailable, "could not approve request", err)
		}
	}

	chat, err := s.chats.EnsureForPost(ctx, updated)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not set up group chat", err)
	}
	// Idempotent adds: the host lands here on every approval, the
	// approved user once.
	if err := s.chats.AddMember(ctx, chat.ID, updated.HostID); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not set up group chat", err)
	}
	if err := s.chats.AddMember(ctx, chat.ID, userID); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not set up group chat", err)
	}

	s.logger.Info("request approved",
		zap.String("post_id", postID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("participants", updated.ParticipantCount),
		zap.String("status", string(updated.Status)),
	)

	payload := map[string]any{
		"post_id": postID,
		"user_id": userID,
		"chat_id": chat.ID,
	}
	s.events.PublishToPost(postID, EventJoinApproved, payload)
	s.events.PublishToUser(userID, EventJoinApproved, payload)
	s.notifier.Notify(ctx, userID, "Request approved",
		"Your join request was approved! Open the post to join the group chat.",
		map[string]string{
			"type":    EventJoinApproved,
			"post_id": postID.String(),
			"chat_id": chat.ID.String(),
		})

	return chat, nil
}

// Reject declines a pending request. Terminal: the user cannot
// re-request afterwards.
func (s *RequestService) Reject(ctx context.Context, postID, userID, requesterID uuid.UUID) error {
	if _, err := s.hostOwned(ctx, postID, requesterID); err != nil {
		return err
	}

	req, err := s.requests.GetByPostAndUser(ctx, postID, userID)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not reject request", err)
	}
	if req == nil {
		return apperr.New(apperr.CodeNotFound, "request not found")
	}

	if err := s.requests.Reject(ctx, postID, userID); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return apperr.New(apperr.CodeInvalidState, "request already processed")
		}
		return apperr.Wrap(apperr.CodeUnavailable, "could not reject request", err)
	}

	payload := map[string]any{
		"post_id": postID,
		"user_id": userID,
	}
	s.events.PublishToPost(postID, EventJoinRejected, payload)
	s.events.PublishToUser(userID, EventJoinRejected, payload)

	return nil
}

func (s *RequestService) hostOwned(ctx context.Context, postID, requesterID uuid.UUID) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "could not fetch post", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	if post.HostID != requesterID {
		return nil, apperr.New(apperr.CodeForbidden, "only the host may manage requests")
	}
	return post, nil
}
