package notify

import (
	"context"

	domain "github.com/bryanwahyu/neuroscan/internal/domain/notify"
	"github.com/bryanwahyu/neuroscan/internal/logger"
)

// LogNotifier writes notices to the structured log. Used when NATS is not configured.
type LogNotifier struct {
	Log logger.ILogger
}

func (l LogNotifier) Notify(_ context.Context, n domain.Notice) error {
	details := map[string]interface{}{
		"owner":   n.OwnerID,
		"title":   n.Title,
		"message": n.Message,
	}
	if n.Level == domain.LevelError {
		l.Log.Warn("notify", "notice", details)
		return nil
	}
	l.Log.Info("notify", "notice", details)
	return nil
}
