package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkup-app/linkup/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Create(ctx context.Context, chatID, senderID uuid.UUID, body string) (*models.Message, error) {
	// Messages use bigserial, so Postgres assigns the ID; the
	// sequence doubles as creation order.
	query := `
		INSERT INTO messages (chat_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, chat_id, sender_id, body, created_at`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, chatID, senderID, body).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.SenderID,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, body, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.SenderID,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
