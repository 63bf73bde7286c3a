package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher writes batches to the structured log. Used when no webhook is
// configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, batch Batch) error {
	d.logger.InfoContext(ctx, "notification batch",
		"user_id", batch.UserID.String(),
		"kind", string(batch.Kind),
		"items", len(batch.Items),
	)
	return nil
}

func (d *LogDispatcher) Close() error { return nil }
