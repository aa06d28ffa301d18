package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// ShellHandlerOptions configures NewShellHandler.
type ShellHandlerOptions struct {
	// Command and Args are run as-is; the row is marshaled to JSON and
	// passed on the child process's stdin rather than interpolated
	// into the argument list.
	Command string
	Args    []string
	Timeout time.Duration // defaults to 30s
}

// NewShellHandler returns a dispatch.Handler that pipes the row as
// JSON to the stdin of an external command. A non-zero exit is
// reported as a handler error.
func NewShellHandler(opts ShellHandlerOptions, logger *zap.Logger) dispatch.Handler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(ctx context.Context, row queue.Row) error {
		body, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("handlers: marshal row: %w", err)
		}

		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(cmdCtx, opts.Command, opts.Args...)
		cmd.Stdin = bytes.NewReader(body)
		cmd.Env = os.Environ()

		output, err := cmd.CombinedOutput()
		if err != nil {
			logger.Warn("handlers: shell handler failed",
				zap.String("command", opts.Command), zap.Error(err), zap.ByteString("output", output))
			return fmt.Errorf("handlers: shell command failed: %w", err)
		}

		return nil
	}
}
