package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/models"
)

// Sentinel errors for the transactional operations where the store,
// not the service, decides the outcome. Get-style methods instead
// return nil, nil on not-found.
var (
	// ErrRequestNotPending means the join request was already
	// approved or rejected by an earlier call.
	ErrRequestNotPending = errors.New("join request is not pending")

	// ErrPostFull means the capacity-guarded increment found no
	// remaining slot.
	ErrPostFull = errors.New("post is at capacity")
)

// UserRepository handles account rows.
type UserRepository interface {
	// GetByID returns a user. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByPhone returns a user by contact handle. Returns nil, nil if not found.
	GetByPhone(ctx context.Context, phone string) (*models.User, error)

	// Create inserts a new user for a verified phone.
	Create(ctx context.Context, phone string) (*models.User, error)

	// UpdateProfile sets display name and email.
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) (*models.User, error)
}

// PostRepository handles post rows and the capacity-critical
// approve transaction.
type PostRepository interface {
	// Create inserts the post as given and returns it with CreatedAt populated.
	Create(ctx context.Context, post *models.Post) (*models.Post, error)

	// GetByID returns a post. Returns nil, nil if not found.
	GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error)

	// ListByHost returns the host's posts, newest event first.
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]models.Post, error)

	// ListJoined returns posts the user holds an approved request
	// for, newest event first.
	ListJoined(ctx context.Context, userID uuid.UUID) ([]models.Post, error)

	// CountCreatedSince returns how many posts the host created at or
	// after the given instant. The quota check passes the start of the
	// current month, so the free allowance rolls over on its own.
	CountCreatedSince(ctx context.Context, hostID uuid.UUID, since time.Time) (int, error)

	// ApproveRequest atomically flips the (postID, userID) join
	// request from pending to approved and increments the post's
	// participant count, flipping status to full at capacity. Both
	// happen in one transaction so two approvals racing for the last
	// slot cannot both win, and a loser's request stays pending.
	// Returns ErrRequestNotPending or ErrPostFull on conflict.
	ApproveRequest(ctx context.Context, postID, userID uuid.UUID) (*models.Post, error)

	// UpdateStatus sets the stored status.
	UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error

	// Delete removes the post row. Join requests go with it via
	// cascade; an existing chat is detached, not deleted.
	Delete(ctx context.Context, postID uuid.UUID) error

	// ExpireDue transitions every open or full post past its expiry
	// to expired, returning how many rows changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// JoinRequestRepository handles the one-row-per-(post,user) protocol
// state. Approval itself lives on PostRepository because it must be
// transactional with the capacity counter.
type JoinRequestRepository interface {
	// Create inserts a pending request. The bool is false when a row
	// for (postID, userID) already exists, whatever its status.
	Create(ctx context.Context, postID, userID uuid.UUID, message string) (*models.JoinRequest, bool, error)

	// GetByPostAndUser returns the row or nil, nil.
	GetByPostAndUser(ctx context.Context, postID, userID uuid.UUID) (*models.JoinRequest, error)

	// ListByPost returns all requests for a post, oldest first.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.JoinRequest, error)

	// ListByUser returns the user's requests, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.JoinRequest, error)

	// Reject flips pending to rejected. Returns ErrRequestNotPending
	// if the row is past pending; nil, nil handling is the caller's
	// job via GetByPostAndUser.
	Reject(ctx context.Context, postID, userID uuid.UUID) error
}

// ChatRepository handles group chats and membership.
type ChatRepository interface {
	// EnsureForPost returns the post's chat, creating it if absent.
	// The unique constraint on post_id dedupes concurrent creation;
	// the loser reuses the winner's row.
	EnsureForPost(ctx context.Context, post *models.Post) (*models.GroupChat, error)

	// GetByID returns a chat. Returns nil, nil if not found.
	GetByID(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error)

	// GetByPostID returns the post's chat or nil, nil.
	GetByPostID(ctx context.Context, postID uuid.UUID) (*models.GroupChat, error)

	// AddMember idempotently adds a user to the chat.
	AddMember(ctx context.Context, chatID, userID uuid.UUID) error

	// IsMember checks membership. Hot path — runs before every send.
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)

	// ListMembers returns the chat's member rows.
	ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.ChatMember, error)

	// ListByMember returns the user's active, unexpired chats,
	// soonest-expiring first.
	ListByMember(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.GroupChat, error)

	// DeactivateDue flips active chats past expiry to inactive and
	// returns their ids so the caller can notify each room.
	DeactivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// MessageRepository handles chat message persistence.
type MessageRepository interface {
	// Create persists a message and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, chatID, senderID uuid.UUID, body string) (*models.Message, error)

	// ListByChat returns the full history, oldest first.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
}

// OTPRepository handles one-time login codes, one row per phone.
type OTPRepository interface {
	// Upsert replaces any previous code for the phone.
	Upsert(ctx context.Context, phone, codeHash string, expiresAt time.Time) error

	// Get returns the row or nil, nil.
	Get(ctx context.Context, phone string) (*models.OTPCode, error)

	// Delete consumes the code. No-op if absent.
	Delete(ctx context.Context, phone string) error

	// PurgeExpired deletes rows past expiry, returning the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
