package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

// buildTriggerFunctionSQL generates the plpgsql function fired on
// every insert into the queue table itself: it serialises the new
// row's identity onto the push channel as "<id>:<table>:<operation>".
func buildTriggerFunctionSQL(funcName, channelName string) string {
	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION %[1]s() RETURNS TRIGGER AS $$
BEGIN
	PERFORM pg_notify(%[2]s, NEW.id || ':' || NEW.table_name || ':' || NEW.operation);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;
`, gateway.QuoteIdentifier(funcName), gateway.QuoteLiteral(channelName))
}

func buildTriggerSQL(triggerName, funcName, tableName string) string {
	return fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s ON %[2]s;
CREATE TRIGGER %[1]s
AFTER INSERT ON %[2]s
FOR EACH ROW EXECUTE FUNCTION %[3]s();
`, gateway.QuoteIdentifier(triggerName), gateway.QuoteIdentifier(tableName), gateway.QuoteIdentifier(funcName))
}

// parseNotificationPayload parses a "<rowId>:<tableName>:<operation>"
// payload as produced by buildTriggerFunctionSQL. Malformed payloads
// are dropped by the caller rather than crashing the listener loop —
// the reconciler will still pick up the row on its next pass.
func parseNotificationPayload(payload string, internalTable string) (Notification, error) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return Notification{}, fmt.Errorf("queue: malformed notification payload %q", payload)
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Notification{}, fmt.Errorf("queue: malformed row id in payload %q: %w", payload, err)
	}

	table := parts[1]
	op := config.Operation(parts[2])
	if !config.KnownOperations[op] {
		return Notification{}, fmt.Errorf("queue: unknown operation in payload %q", payload)
	}

	return Notification{
		RowID:      id,
		TableName:  table,
		Operation:  op,
		IsInternal: table == internalTable,
	}, nil
}

// listenerConn wraps a pq.Listener bound to a single channel, relaying
// well-formed notifications to emit and logging (not crashing on)
// malformed ones.
type listenerConn struct {
	l             *pq.Listener
	logger        *zap.Logger
	internalTable string
	done          chan struct{}
}

func newListenerConn(dsn, channel, internalTable string, logger *zap.Logger, emit func(Notification)) (*listenerConn, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("queue listener event", zap.Error(err))
		}
	}

	l := pq.NewListener(dsn, 10*time.Second, time.Minute, reportProblem)
	if err := l.Listen(channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("queue: listen on channel %q: %w", channel, err)
	}

	lc := &listenerConn{l: l, logger: logger, internalTable: internalTable, done: make(chan struct{})}

	go lc.receive(emit)

	return lc, nil
}

func (lc *listenerConn) receive(emit func(Notification)) {
	for {
		select {
		case <-lc.done:
			return
		case notice, ok := <-lc.l.Notify:
			if !ok {
				return
			}
			if notice == nil {
				// pq reconnected; the reconciler's next pass covers
				// anything missed during the gap.
				continue
			}
			n, err := parseNotificationPayload(notice.Extra, lc.internalTable)
			if err != nil {
				lc.logger.Warn("queue: dropping malformed notification", zap.Error(err))
				continue
			}
			emit(n)
		case <-time.After(90 * time.Second):
			go lc.l.Ping()
		}
	}
}

func (lc *listenerConn) close() {
	close(lc.done)
	lc.l.Close()
}
