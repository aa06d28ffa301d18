package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// NewLogHandler returns a dispatch.Handler that structured-logs every
// row it receives at the given level. Never returns an error — a
// logging sink has no failure mode worth retrying a row over.
func NewLogHandler(level string, logger *zap.Logger) dispatch.Handler {
	log := logAtLevel(level, logger)

	return func(ctx context.Context, row queue.Row) error {
		log("horton: row received",
			zap.String("table", row.TableName),
			zap.String("operation", string(row.Operation)),
			zap.Int64("row_id", row.ID),
			zap.Time("queued_at", row.QueuedAt))
		return nil
	}
}

func logAtLevel(level string, logger *zap.Logger) func(string, ...zap.Field) {
	switch level {
	case "debug":
		return logger.Debug
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Info
	}
}
