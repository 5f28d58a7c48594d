package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account created on first successful OTP verification.
// The free-tier post quota is derived from the posts table, not
// stored here; subscription changes come from the billing
// collaborator.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Phone              string     `json:"phone"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// HasActiveSubscription reports whether the free-tier quota applies.
func (u *User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.After(now)
}

type PostStatus string

const (
	PostStatusOpen      PostStatus = "open"
	PostStatusFull      PostStatus = "full"
	PostStatusExpired   PostStatus = "expired"
	PostStatusCancelled PostStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s PostStatus) Terminal() bool {
	return s == PostStatusExpired || s == PostStatusCancelled
}

// PostCategories is the accepted category vocabulary.
var PostCategories = map[string]bool{
	"food":    true,
	"sports":  true,
	"travel":  true,
	"study":   true,
	"movies":  true,
	"music":   true,
	"gaming":  true,
	"fitness": true,
	"other":   true,
}

// Post is a short-lived meetup announcement. ExpiresAt is derived at
// creation time: event time + duration + a fixed wrap-up buffer, and
// is the single timestamp the post and its chat both expire on.
type Post struct {
	ID               uuid.UUID  `json:"id"`
	HostID           uuid.UUID  `json:"host_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	AddressText      string     `json:"address_text"`
	EventAt          time.Time  `json:"event_at"`
	DurationMinutes  int        `json:"duration_minutes"`
	ExpiresAt        time.Time  `json:"expires_at"`
	CostPerPerson    float64    `json:"cost_per_person"`
	MaxParticipants  int        `json:"max_participants"`
	ParticipantCount int        `json:"participant_count"`
	Status           PostStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// JoinRequest is unique per (post, user). Approved and rejected rows
// are terminal; the row is kept after rejection so the same user
// cannot re-request.
type JoinRequest struct {
	ID        uuid.UUID     `json:"id"`
	PostID    uuid.UUID     `json:"post_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Message   string        `json:"message,omitempty"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// GroupChat is created lazily on the first approval for a post and
// mirrors the post's expiry. PostID is nil once the originating post
// has been deleted; the chat and its history survive for members.
type GroupChat struct {
	ID        uuid.UUID  `json:"id"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	EventAt   time.Time  `json:"event_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// ChatMember is the join table between chats and users.
type ChatMember struct {
	ChatID   uuid.UUID `json:"chat_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is append-only chat content. bigserial ID: highest-volume
// table, and the sequence doubles as creation order.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// OTPCode is a short-lived login code, one row per phone, hashed at
// rest. Purged by the scheduler's janitor pass.
type OTPCode struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
