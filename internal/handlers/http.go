// Package handlers provides ready-made dispatch.Handler constructors
// for common delivery targets, so a host doesn't have to hand-roll an
// HTTP client, logger call, or shell invocation just to forward a row
// somewhere. Grounded on the teacher's actions package (HTTPAction,
// LogAction, ShellAction), rewritten from "workflow action with a
// map[string]interface{} input" to "CDC row handler".
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// HTTPForwardOptions configures NewHTTPForward.
type HTTPForwardOptions struct {
	URL     string
	Method  string // defaults to POST
	Headers map[string]string
	Timeout time.Duration // defaults to 30s
}

// NewHTTPForward returns a dispatch.Handler that POSTs (or whatever
// method is configured) the row as a JSON body to opts.URL. A
// non-2xx response is reported as a handler error.
func NewHTTPForward(opts HTTPForwardOptions, logger *zap.Logger) dispatch.Handler {
	method := opts.Method
	if method == "" {
		method = http.MethodPost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, row queue.Row) error {
		body, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("handlers: marshal row: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, opts.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("handlers: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("handlers: http forward: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			logger.Warn("handlers: http forward received non-2xx",
				zap.String("url", opts.URL), zap.Int("status_code", resp.StatusCode))
			return fmt.Errorf("handlers: http forward failed with status %d", resp.StatusCode)
		}

		return nil
	}
}
