// Package scheduler runs the background expiry sweeps. The sweeps are
// an optimization for queries — enforcement always derives status from
// timestamps — so a missed tick is never a correctness problem.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/linkup-app/linkup/internal/service"
	"go.uber.org/zap"
)

// The sweeps only need one store operation each, so the scheduler
// declares exactly those rather than the full repositories.

type PostSweeper interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type ChatSweeper interface {
	DeactivateDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type OTPPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChatNotifier is the slice of the realtime layer the scheduler needs:
// telling a room its chat just expired.
type ChatNotifier interface {
	PublishToChat(chatID uuid.UUID, event string, payload any)
}

type Scheduler struct {
	posts PostSweeper
	chats ChatSweeper
	otps  OTPPurger

	events ChatNotifier

	sweepInterval   time.Duration
	janitorInterval time.Duration

	clock  func() time.Time
	logger *zap.Logger
}

func New(
	posts PostSweeper,
	chats ChatSweeper,
	otps OTPPurger,
	events ChatNotifier,
	sweepInterval, janitorInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		posts:           posts,
		chats:           chats,
		otps:            otps,
		events:          events,
		sweepInterval:   sweepInterval,
		janitorInterval: janitorInterval,
		clock:           time.Now,
		logger:          logger,
	}
}

// Run blocks until ctx is cancelled. Both jobs fire once immediately
// so a restart doesn't leave stale rows sitting until the first tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.Sweep(ctx)
	s.Janitor(ctx)

	sweep := time.NewTicker(s.sweepInterval)
	janitor := time.NewTicker(s.janitorInterval)
	defer sweep.Stop()
	defer janitor.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-sweep.C:
			s.Sweep(ctx)
		case <-janitor.C:
			s.Janitor(ctx)
		}
	}
}

// Sweep expires due posts and deactivates due chats. Each row
// transition is idempotent, so a sweep interrupted mid-way is simply
// finished by the next one.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.clock()

	expired, err := s.posts.ExpireDue(ctx, now)
	if err != nil {
		s.logger.Error("post sweep failed", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("posts expired", zap.Int64("count", expired))
	}

	chatIDs, err := s.chats.DeactivateDue(ctx, now)
	if err != nil {
		s.logger.Error("chat sweep failed", zap.Error(err))
		return
	}
	for _, chatID := range chatIDs {
		// Tell connected clients to lock their input now instead of
		// finding out on their next failed send.
		s.events.PublishToChat(chatID, service.EventChatExpired, map[string]any{
			"chat_id": chatID,
		})
	}
	if len(chatIDs) > 0 {
		s.logger.Info("chats expired", zap.Int("count", len(chatIDs)))
	}
}

// Janitor purges expired one-time codes. Housekeeping, not lifecycle.
func (s *Scheduler) Janitor(ctx context.Context) {
	purged, err := s.otps.PurgeExpired(ctx, s.clock())
	if err != nil {
		s.logger.Error("otp purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("otp codes purged", zap.Int64("count", purged))
	}
}
