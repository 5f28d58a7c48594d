// Package notify holds the outbound delivery collaborators. Both are
// best-effort: a lost push or SMS never fails the operation that
// triggered it.
package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers a push notification to a user's devices.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string)
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}

// LogNotifier is the default Notifier: it just logs. A real push
// provider (FCM, APNs) slots in behind the same interface.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	n.logger.Info("push notification",
		zap.String("user_id", userID.String()),
		zap.String("title", title),
		zap.String("body", body),
		zap.Any("data", data),
	)
}

// LogSender is the default SMSSender. In development the OTP code
// shows up in the logs instead of on a phone.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, phone, body string) error {
	s.logger.Info("sms", zap.String("phone", phone), zap.String("body", body))
	return nil
}
