package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkup-app/linkup/internal/models"
)

const chatColumns = `id, post_id, title, category, event_at, expires_at, is_active, created_at`

type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func scanChat(row pgx.Row) (*models.GroupChat, error) {
	var c models.GroupChat
	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.Title,
		&c.Category,
		&c.EventAt,
		&c.ExpiresAt,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChatStore) EnsureForPost(ctx context.Context, post *models.Post) (*models.GroupChat, error) {
	// The unique index on post_id dedupes concurrent first-approvals:
	// the loser's insert hits the conflict, returns no row, and the
	// follow-up select picks up the winner's chat.
	insert := `
		INSERT INTO group_chats (id, post_id, title, category, event_at, expires_at, is_active, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, TRUE, now())
		ON CONFLICT (post_id) DO NOTHING
		RETURNING ` + chatColumns

	c, err := scanChat(s.pool.QueryRow(ctx, insert,
		post.ID, post.Title, post.Category, post.EventAt, post.ExpiresAt))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert group chat: %w", err)
	}

	return s.GetByPostID(ctx, post.ID)
}

func (s *ChatStore) GetByID(ctx context.Context, chatID uuid.UUID) (*models.GroupChat, error) {
	query := `SELECT ` + chatColumns + ` FROM group_chats WHERE id = $1`

	c, err := scanChat(s.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group chat: %w", err)
	}
	return c, nil
}

func (s *ChatStore) GetByPostID(ctx context.Context, postID uuid.UUID) (*models.GroupChat, error) {
	query := `SELECT ` + chatColumns + ` FROM group_chats WHERE post_id = $1`

	c, err := scanChat(s.pool.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group chat by post: %w", err)
	}
	return c, nil
}

func (s *ChatStore) AddMember(ctx context.Context, chatID, userID uuid.UUID) error {
	query := `
		INSERT INTO group_chat_members (chat_id, user_id, joined_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id, user_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, chatID, userID); err != nil {
		return fmt.Errorf("add chat member: %w", err)
	}
	return nil
}

func (s *ChatStore) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM group_chat_members
			WHERE chat_id = $1 AND user_id = $2
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, chatID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check chat membership: %w", err)
	}
	return exists, nil
}

func (s *ChatStore) ListMembers(ctx context.Context, chatID uuid.UUID) ([]models.ChatMember, error) {
	query := `SELECT chat_id, user_id, joined_at FROM group_chat_members WHERE chat_id = $1`

	rows, err := s.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat members: %w", err)
	}
	defer rows.Close()

	members := make([]models.ChatMember, 0)
	for rows.Next() {
		var m models.ChatMember
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan chat member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat members: %w", err)
	}
	return members, nil
}

func (s *ChatStore) ListByMember(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.GroupChat, error) {
	// Soonest-expiring first: the most time-sensitive conversation
	// surfaces at the top of the chat list.
	query := `
		SELECT gc.id, gc.post_id, gc.title, gc.category, gc.event_at, gc.expires_at, gc.is_active, gc.created_at
		FROM group_chats gc
		INNER JOIN group_chat_members gcm ON gcm.chat_id = gc.id AND gcm.user_id = $1
		WHERE gc.is_active = TRUE AND gc.expires_at > $2
		ORDER BY gc.expires_at ASC`

	rows, err := s.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list chats by member: %w", err)
	}
	defer rows.Close()

	chats := make([]models.GroupChat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group chat: %w", err)
		}
		chats = append(chats, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group chats: %w", err)
	}
	return chats, nil
}

func (s *ChatStore) DeactivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE group_chats SET is_active = FALSE
		WHERE is_active = TRUE AND expires_at < $1
		RETURNING id`

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("deactivate chats: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat ids: %w", err)
	}
	return ids, nil
}
