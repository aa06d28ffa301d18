package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

const reconcileBatchSize = 1000

// reconciler periodically scans the queue table for rows that never
// produced (or whose producing notification was lost to a listener
// reconnect gap) a push notification, and re-emits them on the bus.
// Grounded on the teacher's scheduler.go cron-ticker idiom.
type reconciler struct {
	c      *cron.Cron
	logger *zap.Logger
}

func newReconciler(q *Queue, freq time.Duration, logger *zap.Logger) (*reconciler, error) {
	c := cron.New(cron.WithSeconds())

	spec := fmt.Sprintf("@every %s", freq)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), freq)
		defer cancel()

		if err := q.reconcileOnce(ctx); err != nil {
			logger.Warn("queue reconciliation pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("queue: schedule reconciler: %w", err)
	}

	c.Start()
	return &reconciler{c: c, logger: logger}, nil
}

func (r *reconciler) stop() {
	ctx := r.c.Stop()
	<-ctx.Done()
}

// reconcileOnce scans up to reconcileBatchSize rows with
// FOR UPDATE SKIP LOCKED so it never contends with a concurrent
// Dequeue holding the same row locked, then re-emits each as a
// Notification. It does not delete rows itself — only Dequeue does.
func (q *Queue) reconcileOnce(ctx context.Context) error {
	var pending []Notification

	err := q.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(
			`SELECT id, table_name, operation FROM %s ORDER BY queued_at ASC FOR UPDATE SKIP LOCKED LIMIT $1`,
			gateway.QuoteIdentifier(q.tableName)), reconcileBatchSize)
		if err != nil {
			return fmt.Errorf("queue: reconciliation scan: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			var table, op string
			if err := rows.Scan(&id, &table, &op); err != nil {
				return fmt.Errorf("queue: reconciliation row scan: %w", err)
			}
			pending = append(pending, Notification{
				RowID:      id,
				TableName:  table,
				Operation:  config.Operation(op),
				IsInternal: table == q.internalTableName,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return fmt.Errorf("queue: reconciliation read: %w", err)
	}

	// Emit only after the scanning transaction has committed and
	// released its row locks, so a handler invoked synchronously by a
	// subscriber can itself Dequeue the same row without blocking on
	// this pass's own SELECT ... FOR UPDATE.
	for _, n := range pending {
		q.bus.emit(n)
	}
	return nil
}
