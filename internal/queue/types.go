// Package queue implements the Event Queue: the durable,
// transactional change log materialised as a database table, fed by
// per-source-table triggers, drained through a push channel plus a
// periodic polling reconciler, each row dequeued under a row-level
// lock with an at-most-one-attempt-in-flight user callback.
//
// Grounded on the pgnotify event bus's pq.Listener receive loop
// (other_examples/a9ef32e6_...) and on the teacher's
// triggers/scheduler.go cron-ticker idiom for the reconciliation pass.
package queue

import (
	"encoding/json"
	"time"

	"github.com/logimos/horton/internal/config"
)

// Row is the canonical queue log record (spec.md §3).
type Row struct {
	ID             int64
	TableName      string
	Operation      config.Operation
	PreviousRecord json.RawMessage // nil on INSERT and for internal rows
	CurrentRecord  json.RawMessage // nil when the listener's RecordColumns is an explicit empty list
	QueuedAt       time.Time
}

// Notification is the transient message derived from a queue row,
// delivered either via the push channel or by the reconciler.
type Notification struct {
	RowID      int64
	TableName  string
	Operation  config.Operation
	IsInternal bool
}

// key returns the in-process subscription key this notification
// routes to: "queued:<table>:<operation>" for external rows,
// "internal:<operation>" for internal ones.
func (n Notification) key() string {
	if n.IsInternal {
		return "internal:" + string(n.Operation)
	}
	return "queued:" + n.TableName + ":" + string(n.Operation)
}

// QueuedKey builds the subscription key for an external table/operation
// pair, exported so the Dispatcher can subscribe without constructing
// Notification values of its own.
func QueuedKey(table string, op config.Operation) string {
	return "queued:" + table + ":" + string(op)
}

// InternalKey builds the subscription key for an internal operation
// (used by the Liveness Checker).
func InternalKey(op config.Operation) string {
	return "internal:" + string(op)
}
