package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

// Queue owns the queue table, its insert trigger, the dedicated
// notification-listener connection, and the periodic reconciler.
type Queue struct {
	gw     *gateway.Gateway
	logger *zap.Logger

	tableName         string // fully prefixed event-queue table
	triggerName       string
	functionName      string
	channelName       string
	internalTableName string

	reconciliationFreq time.Duration
	onHandlerFailure   config.HandlerFailureMode

	bus      *notifyBus
	listener *listenerConn
	reconciler *reconciler
}

// New constructs a Queue. Initialize must be called before Connect.
func New(gw *gateway.Gateway, opts config.EventQueueOptions, logger *zap.Logger) (*Queue, error) {
	tableName, err := gw.PrefixName("event_queue")
	if err != nil {
		return nil, err
	}
	triggerName, err := gw.PrefixName("event_queue_trigger")
	if err != nil {
		return nil, err
	}
	functionName, err := gw.PrefixName("event_queue_trigger_function")
	if err != nil {
		return nil, err
	}
	channelName, err := gw.PrefixName("event_queue_notifications")
	if err != nil {
		return nil, err
	}
	internalTableName, err := gw.PrefixName("internal")
	if err != nil {
		return nil, err
	}

	freq := time.Duration(opts.ReconciliationFrequencyMs) * time.Millisecond
	if freq <= 0 {
		freq = 5 * time.Second
	}
	failureMode := opts.OnHandlerFailure
	if failureMode == "" {
		failureMode = config.HandlerFailureSwallow
	}

	q := &Queue{
		gw:                 gw,
		logger:             logger,
		tableName:          tableName,
		triggerName:        triggerName,
		functionName:       functionName,
		channelName:        channelName,
		internalTableName:  internalTableName,
		reconciliationFreq: freq,
		onHandlerFailure:   failureMode,
		bus:                newNotifyBus(),
	}
	return q, nil
}

// InternalTableName returns the reserved pseudo-table name used for
// internal rows (liveness pulses).
func (q *Queue) InternalTableName() string {
	return q.internalTableName
}

// TableName returns the fully prefixed event-queue table name that
// installed listener triggers insert into.
func (q *Queue) TableName() string {
	return q.tableName
}

// OnHandlerFailureMode reports the configured failure-handling mode.
func (q *Queue) OnHandlerFailureMode() config.HandlerFailureMode {
	return q.onHandlerFailure
}

// On subscribes fn to notifications matching key ("queued:<table>:<op>"
// or "internal:<op>", see QueuedKey/InternalKey). Returns an
// unsubscribe function.
func (q *Queue) On(key string, fn func(Notification)) func() {
	return q.bus.on(key, fn)
}

// Initialize runs inside one transaction: CREATE TABLE IF NOT EXISTS,
// column-signature validation, and (re)creation of the queue table's
// own insert trigger.
func (q *Queue) Initialize(ctx context.Context) error {
	return q.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, buildCreateTableSQL(q.tableName)); err != nil {
			return fmt.Errorf("queue: create table: %w", err)
		}

		if err := validateSchema(ctx, tx, q.tableName); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, buildTriggerFunctionSQL(q.functionName, q.channelName)); err != nil {
			return fmt.Errorf("queue: create notify function: %w", err)
		}
		if _, err := tx.ExecContext(ctx, buildTriggerSQL(q.triggerName, q.functionName, q.tableName)); err != nil {
			return fmt.Errorf("queue: create notify trigger: %w", err)
		}

		return nil
	})
}

// Depth returns the number of rows currently sitting in the queue
// table, awaiting dequeue. Used for admin/monitoring surfaces; not
// part of the delivery path itself.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	var depth int
	err := q.gw.DB().QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`,
		gateway.QuoteIdentifier(q.tableName))).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("queue: depth: %w", err)
	}
	return depth, nil
}

// Enqueue inserts a single queue row in its own transaction. The
// queue table's own insert trigger fires the push notification.
func (q *Queue) Enqueue(ctx context.Context, row Row) error {
	return q.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (table_name, operation, previous_record, current_record, queued_at) VALUES ($1, $2, $3, $4, clock_timestamp())`,
			gateway.QuoteIdentifier(q.tableName)),
			row.TableName, string(row.Operation), nullableJSON(row.PreviousRecord), nullableJSON(row.CurrentRecord),
		)
		if err != nil {
			return fmt.Errorf("queue: enqueue: %w", err)
		}
		return nil
	})
}

// EnqueueInternal enqueues an internal row (the Liveness Checker's
// pulse) with tableName set to the reserved pseudo-name and
// currentRecord carrying metadata.
func (q *Queue) EnqueueInternal(ctx context.Context, operation config.Operation, metadata map[string]interface{}) error {
	current, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("queue: marshal internal metadata: %w", err)
	}

	return q.Enqueue(ctx, Row{
		TableName:     q.internalTableName,
		Operation:     operation,
		CurrentRecord: current,
	})
}

// Connect starts the listener connection then starts the
// reconciliation timer.
func (q *Queue) Connect(ctx context.Context) error {
	listener, err := newListenerConn(q.gw.DSN(), q.channelName, q.internalTableName, q.logger, q.bus.emit)
	if err != nil {
		return fmt.Errorf("queue: connect listener: %w", err)
	}
	q.listener = listener

	rec, err := newReconciler(q, q.reconciliationFreq, q.logger)
	if err != nil {
		q.listener.close()
		q.listener = nil
		return fmt.Errorf("queue: start reconciler: %w", err)
	}
	q.reconciler = rec

	q.logger.Info("event queue connected",
		zap.String("channel", q.channelName),
		zap.Duration("reconciliation_frequency", q.reconciliationFreq))
	return nil
}

// Disconnect stops the reconciler, force-releases the listener
// connection, and awaits gracePeriod so in-flight dequeues may finish.
func (q *Queue) Disconnect(gracePeriod time.Duration) error {
	if q.reconciler != nil {
		q.reconciler.stop()
		q.reconciler = nil
	}
	if q.listener != nil {
		q.listener.close()
		q.listener = nil
	}

	if gracePeriod > 0 {
		time.Sleep(gracePeriod)
	}
	return nil
}

// Reconnect disconnects with cooldown as the grace period, then
// connects again. Used by the Liveness Checker on degraded status.
func (q *Queue) Reconnect(ctx context.Context, cooldown time.Duration) error {
	if err := q.Disconnect(cooldown); err != nil {
		return err
	}
	return q.Connect(ctx)
}

// Teardown drops the queue table's own trigger, its function, and the
// queue table itself, inside one transaction.
func (q *Queue) Teardown(ctx context.Context) error {
	return q.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`,
			gateway.QuoteIdentifier(q.triggerName), gateway.QuoteIdentifier(q.tableName))); err != nil {
			return fmt.Errorf("queue: drop trigger: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP FUNCTION IF EXISTS %s()`,
			gateway.QuoteIdentifier(q.functionName))); err != nil {
			return fmt.Errorf("queue: drop function: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`,
			gateway.QuoteIdentifier(q.tableName))); err != nil {
			return fmt.Errorf("queue: drop table: %w", err)
		}
		return nil
	})
}

func nullableJSON(raw json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}
