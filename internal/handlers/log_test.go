package handlers

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/queue"
)

func TestNewLogHandlerNeverErrors(t *testing.T) {
	h := NewLogHandler("info", zap.NewNop())

	if err := h(context.Background(), queue.Row{TableName: "accounts", Operation: "INSERT"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLogAtLevelFallsBackToInfo(t *testing.T) {
	logger := zap.NewNop()
	if logAtLevel("bogus", logger) == nil {
		t.Error("expected a non-nil log function for an unrecognized level")
	}
}
