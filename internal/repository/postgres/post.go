package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkup-app/linkup/internal/geo"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/repository"
)

const postColumns = `id, host_id, title, description, category, lat, lng, address_text,
		event_at, duration_minutes, expires_at, cost_per_person,
		max_participants, participant_count, status, created_at`

// Qualified variant for joins where join_requests shares column names.
const postColumnsQ = `p.id, p.host_id, p.title, p.description, p.category, p.lat, p.lng, p.address_text,
		p.event_at, p.duration_minutes, p.expires_at, p.cost_per_person,
		p.max_participants, p.participant_count, p.status, p.created_at`

type PostStore struct {
	pool *pgxpool.Pool
}

func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID,
		&p.HostID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.Lat,
		&p.Lng,
		&p.AddressText,
		&p.EventAt,
		&p.DurationMinutes,
		&p.ExpiresAt,
		&p.CostPerPerson,
		&p.MaxParticipants,
		&p.ParticipantCount,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *PostStore) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, host_id, title, description, category, lat, lng, address_text,
			event_at, duration_minutes, expires_at, cost_per_person,
			max_participants, participant_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		RETURNING ` + postColumns

	p, err := scanPost(s.pool.QueryRow(ctx, query,
		post.ID,
		post.HostID,
		post.Title,
		post.Description,
		post.Category,
		post.Lat,
		post.Lng,
		post.AddressText,
		post.EventAt,
		post.DurationMinutes,
		post.ExpiresAt,
		post.CostPerPerson,
		post.MaxParticipants,
		post.ParticipantCount,
		post.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

func (s *PostStore) GetByID(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(s.pool.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostStore) ListByHost(ctx context.Context, hostID uuid.UUID) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE host_id = $1 ORDER BY event_at DESC`

	rows, err := s.pool.Query(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("list posts by host: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostStore) ListJoined(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	query := `
		SELECT ` + postColumnsQ + `
		FROM posts p
		INNER JOIN join_requests jr ON jr.post_id = p.id
			AND jr.user_id = $1 AND jr.status = 'approved'
		ORDER BY p.event_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list joined posts: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostStore) CountCreatedSince(ctx context.Context, hostID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT count(*) FROM posts WHERE host_id = $1 AND created_at >= $2`

	var n int
	if err := s.pool.QueryRow(ctx, query, hostID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// ApproveRequest is the one multi-statement transaction in the system.
// The request flip and the capacity increment must land together:
// committing the flip without the increment would leak a seat, and the
// conditional UPDATE on participant_count is what serializes two
// approvals racing for the last slot (the row lock holds until commit).
func (s *PostStore) ApproveRequest(ctx context.Context, postID, userID uuid.UUID) (*models.Post, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE join_requests SET status = 'approved'
		WHERE post_id = $1 AND user_id = $2 AND status = 'pending'`,
		postID, userID)
	if err != nil {
		return nil, fmt.Errorf("approve request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrRequestNotPending
	}

	// Guarded increment: only succeeds while a slot remains, and
	// flips the post to full when this approval takes the last one.
	query := `
		UPDATE posts
		SET participant_count = participant_count + 1,
			status = CASE
				WHEN participant_count + 1 >= max_participants THEN 'full'
				ELSE status
			END
		WHERE id = $1 AND participant_count < max_participants
		RETURNING ` + postColumns

	p, err := scanPost(tx.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No slot left. Rolling back leaves the request pending
			// so the host can approve someone else later.
			return nil, repository.ErrPostFull
		}
		return nil, fmt.Errorf("increment participants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}
	return p, nil
}

func (s *PostStore) UpdateStatus(ctx context.Context, postID uuid.UUID, status models.PostStatus) error {
	query := `UPDATE posts SET status = $2 WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, postID, status); err != nil {
		return fmt.Errorf("update post status: %w", err)
	}
	return nil
}

func (s *PostStore) Delete(ctx context.Context, postID uuid.UUID) error {
	// join_requests cascade with the post; group_chats.post_id is
	// ON DELETE SET NULL so an existing chat keeps its history.
	query := `DELETE FROM posts WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *PostStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	// Re-sweeping is a no-op: expired rows no longer match the
	// status filter.
	query := `
		UPDATE posts SET status = 'expired'
		WHERE status IN ('open', 'full') AND expires_at < $1`

	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Nearby implements geo.Index with a bounding-box scan over the
// (lat, lng) index. Good enough at city scale without PostGIS.
func (s *PostStore) Nearby(ctx context.Context, center geo.Point, radiusKm float64, f geo.Filters) ([]models.Post, error) {
	box := geo.BoundingBox(center, radiusKm)

	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'open' AND event_at > now()
			AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`
	args := []any{box.MinLat, box.MaxLat, box.MinLng, box.MaxLng}

	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND event_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND event_at <= $%d", len(args))
	}
	query += " ORDER BY event_at ASC LIMIT 100"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearby posts: %w", err)
	}
	return collectPosts(rows)
}
