package checkout

import (
	"context"

	"go.uber.org/zap"
)

// Notifier tells the user that a checkout attempt failed.
type Notifier interface {
	CheckoutFailed(ctx context.Context, userID int64, err error)
}

// LogNotifier records failures in the service log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) CheckoutFailed(_ context.Context, userID int64, err error) {
	n.log.Warn("checkout failed", zap.Int64("user_id", userID), zap.Error(err))
}
