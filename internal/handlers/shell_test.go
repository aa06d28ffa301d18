package handlers

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/queue"
)

func TestNewShellHandlerSucceedsOnExitZero(t *testing.T) {
	h := NewShellHandler(ShellHandlerOptions{Command: "true"}, zap.NewNop())

	if err := h(context.Background(), queue.Row{TableName: "accounts", Operation: "INSERT"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewShellHandlerFailsOnNonZeroExit(t *testing.T) {
	h := NewShellHandler(ShellHandlerOptions{Command: "false"}, zap.NewNop())

	if err := h(context.Background(), queue.Row{}); err == nil {
		t.Error("expected an error for a failing command")
	}
}
