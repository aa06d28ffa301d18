// Package dispatch implements the Dispatcher's in-process event bus:
// a keyed registry of row subscribers with wildcard fan-out and
// synchronous, failure-isolated delivery.
//
// Grounded on the teacher's actions.Registry (a name-keyed map with
// Register/Get) and engine.Engine.workflows (an event-type-keyed map
// feeding GetWorkflowForEvent) — horton's bus is the same shape, keyed
// by "table:operation" instead of a workflow event name, with an added
// wildcard tier engine.go never had.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/queue"
)

// Handler receives a dequeued row. A returned error never aborts the
// batch — see EmitSync — but is logged and counted.
type Handler func(ctx context.Context, row queue.Row) error

// Bus is the keyed handler registry. Zero value is not usable; use New.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]map[string]Handler // key -> subscription id -> handler
}

// New constructs an empty Bus.
func New(logger *zap.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[string]Handler),
	}
}

// key builds the exact-match subscription key for a table/operation
// pair, mirroring queue.QueuedKey's "queued:<table>:<op>" shape but
// scoped to the Dispatcher's own vocabulary ("<table>:<op>").
func key(table string, op config.Operation) string {
	return table + ":" + string(op)
}

// wildcardKey builds the fan-out key for "every operation on table".
func wildcardKey(table string) string {
	return table + ":*"
}

// On registers fn for exact (table, operation) matches. Returns an
// unsubscribe function.
func (b *Bus) On(table string, op config.Operation, fn Handler) func() {
	return b.subscribe(key(table, op), fn)
}

// OnAny registers fn for every operation on table.
func (b *Bus) OnAny(table string, fn Handler) func() {
	return b.subscribe(wildcardKey(table), fn)
}

func (b *Bus) subscribe(k string, fn Handler) func() {
	id := uuid.NewString()

	b.mu.Lock()
	if b.handlers[k] == nil {
		b.handlers[k] = make(map[string]Handler)
	}
	b.handlers[k][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[k], id)
	}
}

// EmitSync delivers row to every handler subscribed to (table,
// operation) and to every wildcard handler on table, awaiting each to
// completion in turn. Per spec §4.5, an individual handler failure is
// logged and counted but never stops the remaining handlers, so one
// failing handler cannot poison the rest of the batch. If any handler
// failed, EmitSync returns an aggregate error; EmitSync itself rolls
// nothing back. The Dispatcher decides what the error means under its
// HandlerFailureMode: swallow mode discards it and the row is deleted,
// retain mode returns it from the Dequeue callback and the row stays.
func (b *Bus) EmitSync(ctx context.Context, table string, op config.Operation, row queue.Row) error {
	handlers := b.snapshot(key(table, op))
	handlers = append(handlers, b.snapshot(wildcardKey(table))...)

	var failures int
	for _, h := range handlers {
		if err := h(ctx, row); err != nil {
			failures++
			b.logger.Warn("dispatch: handler failed",
				zap.String("table", table),
				zap.String("operation", string(op)),
				zap.Error(err))
		}
	}

	if failures > 0 {
		return fmt.Errorf("dispatch: %d of %d handlers failed for %s:%s", failures, len(handlers), table, op)
	}
	return nil
}

func (b *Bus) snapshot(k string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[k]))
	for _, h := range b.handlers[k] {
		out = append(out, h)
	}
	return out
}
