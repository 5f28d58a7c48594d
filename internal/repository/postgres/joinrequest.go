package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/repository"
)

const requestColumns = `id, post_id, user_id, message, status, created_at`

type JoinRequestStore struct {
	pool *pgxpool.Pool
}

func NewJoinRequestStore(pool *pgxpool.Pool) *JoinRequestStore {
	return &JoinRequestStore{pool: pool}
}

func scanRequest(row pgx.Row) (*models.JoinRequest, error) {
	var r models.JoinRequest
	err := row.Scan(
		&r.ID,
		&r.PostID,
		&r.UserID,
		&r.Message,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *JoinRequestStore) Create(ctx context.Context, postID, userID uuid.UUID, message string) (*models.JoinRequest, bool, error) {
	// ON CONFLICT DO NOTHING + RETURNING: when a row for this
	// (post, user) already exists — pending, approved OR rejected —
	// the insert returns no row. Rejected users cannot re-request;
	// the unique constraint is the enforcement point, so concurrent
	// duplicate requests cannot both land either.
	query := `
		INSERT INTO join_requests (id, post_id, user_id, message, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, 'pending', now())
		ON CONFLICT (post_id, user_id) DO NOTHING
		RETURNING ` + requestColumns

	r, err := scanRequest(s.pool.QueryRow(ctx, query, postID, userID, message))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("insert join request: %w", err)
	}
	return r, true, nil
}

func (s *JoinRequestStore) GetByPostAndUser(ctx context.Context, postID, userID uuid.UUID) (*models.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE post_id = $1 AND user_id = $2`

	r, err := scanRequest(s.pool.QueryRow(ctx, query, postID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get join request: %w", err)
	}
	return r, nil
}

func (s *JoinRequestStore) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE post_id = $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return collectRequests(rows)
}

func (s *JoinRequestStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.JoinRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM join_requests WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user requests: %w", err)
	}
	return collectRequests(rows)
}

func (s *JoinRequestStore) Reject(ctx context.Context, postID, userID uuid.UUID) error {
	// Conditional on pending: a second reject, or a reject after
	// approve, changes nothing and reports the conflict.
	query := `
		UPDATE join_requests SET status = 'rejected'
		WHERE post_id = $1 AND user_id = $2 AND status = 'pending'`

	tag, err := s.pool.Exec(ctx, query, postID, userID)
	if err != nil {
		return fmt.Errorf("reject join request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrRequestNotPending
	}
	return nil
}

func collectRequests(rows pgx.Rows) ([]models.JoinRequest, error) {
	defer rows.Close()

	requests := make([]models.JoinRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		requests = append(requests, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join requests: %w", err)
	}
	return requests, nil
}
