package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

// ErrRowGone is returned by Dequeue when rowID has already been
// claimed and deleted by a concurrent Dequeue (normal under
// at-least-once delivery from the reconciler racing the push path).
var ErrRowGone = errors.New("queue: row already dequeued")

// Dequeue implements spec.md §4.3's delivery contract: lock the row
// with SELECT ... FOR UPDATE, invoke callback with the locked Row, and
// either DELETE-then-commit on success or rollback (leaving the row
// intact for a later attempt) on failure. It is the single honest
// implementation of that contract; the Dispatcher's configured
// HandlerFailureMode decides, above this call, whether a handler
// error ever reaches callback as non-nil.
func (q *Queue) Dequeue(ctx context.Context, rowID int64, callback func(Row) error) error {
	return q.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row, err := lockRow(ctx, tx, q.tableName, rowID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRowGone
		}
		if err != nil {
			return fmt.Errorf("queue: lock row %d: %w", rowID, err)
		}

		if err := callback(row); err != nil {
			return fmt.Errorf("queue: handler rejected row %d: %w", rowID, err)
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`,
			gateway.QuoteIdentifier(q.tableName)), rowID); err != nil {
			return fmt.Errorf("queue: delete row %d: %w", rowID, err)
		}

		return nil
	})
}

func lockRow(ctx context.Context, tx *sql.Tx, tableName string, rowID int64) (Row, error) {
	var row Row
	var previous, current []byte
	var operation string

	err := tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, table_name, operation, previous_record, current_record, queued_at FROM %s WHERE id = $1 FOR UPDATE`,
		gateway.QuoteIdentifier(tableName)), rowID,
	).Scan(&row.ID, &row.TableName, &operation, &previous, &current, &row.QueuedAt)
	if err != nil {
		return Row{}, err
	}

	row.Operation = config.Operation(operation)
	if previous != nil {
		row.PreviousRecord = previous
	}
	row.CurrentRecord = current
	return row, nil
}
