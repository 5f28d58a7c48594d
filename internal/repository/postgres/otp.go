package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkup-app/linkup/internal/models"
)

type OTPStore struct {
	pool *pgxpool.Pool
}

func NewOTPStore(pool *pgxpool.Pool) *OTPStore {
	return &OTPStore{pool: pool}
}

func (s *OTPStore) Upsert(ctx context.Context, phone, codeHash string, expiresAt time.Time) error {
	// One live code per phone; re-sending replaces the old one.
	query := `
		INSERT INTO otp_codes (phone, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (phone) DO UPDATE SET code_hash = $2, expires_at = $3, created_at = now()`

	if _, err := s.pool.Exec(ctx, query, phone, codeHash, expiresAt); err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, phone string) (*models.OTPCode, error) {
	query := `SELECT phone, code_hash, expires_at, created_at FROM otp_codes WHERE phone = $1`

	var code models.OTPCode
	err := s.pool.QueryRow(ctx, query, phone).Scan(
		&code.Phone,
		&code.CodeHash,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get otp: %w", err)
	}
	return &code, nil
}

func (s *OTPStore) Delete(ctx context.Context, phone string) error {
	query := `DELETE FROM otp_codes WHERE phone = $1`

	if _, err := s.pool.Exec(ctx, query, phone); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func (s *OTPStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < $1`

	tag, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return tag.RowsAffected(), nil
}
