package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/linkup-app/linkup/internal/apperr"
	"github.com/linkup-app/linkup/internal/models"
	"github.com/linkup-app/linkup/internal/notify"
	"github.com/linkup-app/linkup/internal/ratelimit"
	"github.com/linkup-app/linkup/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const otpLength = 6

// OTPService implements phone verification: it issues short-lived
// codes over SMS and trades a correct code for a signed token,
// creating the account on first verification.
type OTPService struct {
	users   repository.UserRepository
	otps    repository.OTPRepository
	limiter ratelimit.Limiter
	sms     notify.SMSSender

	jwtSecret string
	tokenTTL  time.Duration
	otpTTL    time.Duration

	clock  func() time.Time
	logger *zap.Logger
}

func NewOTPService(
	users repository.UserRepository,
	otps repository.OTPRepository,
	limiter ratelimit.Limiter,
	sms notify.SMSSender,
	jwtSecret string,
	tokenTTL, otpTTL time.Duration,
	logger *zap.Logger,
) *OTPService {
	return &OTPService{
		users:     users,
		otps:      otps,
		limiter:   limiter,
		sms:       sms,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		otpTTL:    otpTTL,
		clock:     time.Now,
		logger:    logger,
	}
}

// NormalizePhone strips formatting and validates length. Returns the
// number in +digits form.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", apperr.New(apperr.CodeValidationFailed, "invalid phone number")
	}
	return "+" + digits, nil
}

// SendCode issues a fresh code for the phone, replacing any earlier
// one. Rate limited per phone so a number can't be SMS-bombed.
func (s *OTPService) SendCode(ctx context.Context, phone string) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	allowed, err := s.limiter.Allow(ctx, normalized)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not send code", err)
	}
	if !allowed {
		return apperr.New(apperr.CodeRateLimited, "too many codes requested, try again later")
	}

	code, err := generateCode()
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not send code", err)
	}

	// Stored hashed: a leaked otp_codes table is not a login bypass.
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not send code", err)
	}

	expiresAt := s.clock().Add(s.otpTTL)
	if err := s.otps.Upsert(ctx, normalized, string(hash), expiresAt); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "could not send code", err)
	}

	if err := s.sms.Send(ctx, normalized, fmt.Sprintf("Your Linkup code is %s", code)); err != nil {
		// Delivery is best-effort; the code row is already in place
		// and the client can ask for a resend.
		s.logger.Warn("otp sms failed", zap.String("phone", normalized), zap.Error(err))
	}
	return nil
}

// VerifyResult is what a successful verification returns.
type VerifyResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// VerifyCode checks the code, consumes it, and returns a token for
// the (possibly just created) user.
func (s *OTPService) VerifyCode(ctx context.Context, phone, code string) (*VerifyResult, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if len(code) != otpLength {
		return nil, apperr.New(apperr.CodeValidationFailed, "invalid code")
	}

	row, err := s.otps.Get(ctx, normalized)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "verification failed", err)
	}
	if row == nil || row.ExpiresAt.Before(s.clock()) {
		return nil, apperr.New(apperr.CodeExpired, "code expired or not requested")
	}
	if bcrypt.CompareHashAndPassword([]byte(row.CodeHash), []byte(code)) != nil {
		return nil, apperr.New(apperr.CodeUnauthenticated, "incorrect code")
	}

	// Single-use: consume before issuing the token.
	if err := s.otps.Delete(ctx, normalized); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "verification failed", err)
	}

	user, err := s.users.GetByPhone(ctx, normalized)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "verification failed", err)
	}
	if user == nil {
		user, err = s.users.Create(ctx, normalized)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeUnavailable, "verification failed", err)
		}
		s.logger.Info("user created", zap.String("user_id", user.ID.String()))
	}

	token, err := GenerateToken(user.ID, user.Phone, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, "verification failed", err)
	}

	return &VerifyResult{Token: token, User: user}, nil
}

func generateCode() (string, error) {
	// crypto/rand, not math/rand: these codes are credentials.
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
