package queue

import (
	"strings"
	"testing"

	"github.com/logimos/horton/internal/config"
)

func TestParseNotificationPayloadQueued(t *testing.T) {
	n, err := parseNotificationPayload("42:accounts:INSERT", "horton-meta__internal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.RowID != 42 || n.TableName != "accounts" || n.Operation != config.OpInsert || n.IsInternal {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestParseNotificationPayloadInternal(t *testing.T) {
	n, err := parseNotificationPayload("7:horton-meta__internal:LIVENESS_PULSE", "horton-meta__internal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.IsInternal {
		t.Errorf("expected internal notification, got: %+v", n)
	}
}

func TestParseNotificationPayloadMalformed(t *testing.T) {
	cases := []string{"", "42", "42:accounts", "abc:accounts:INSERT", "42:accounts:BOGUS_OP"}
	for _, c := range cases {
		if _, err := parseNotificationPayload(c, "horton-meta__internal"); err == nil {
			t.Errorf("expected error for payload %q", c)
		}
	}
}

func TestBuildTriggerFunctionSQLUsesPgNotify(t *testing.T) {
	sql := buildTriggerFunctionSQL("horton-meta__event_queue_trigger_function", "horton-meta__event_queue_notifications")
	if !strings.Contains(sql, "pg_notify") {
		t.Errorf("expected pg_notify call, got: %s", sql)
	}
}

func TestNotificationKeyRouting(t *testing.T) {
	queued := Notification{TableName: "accounts", Operation: config.OpInsert}
	if got, want := queued.key(), QueuedKey("accounts", config.OpInsert); got != want {
		t.Errorf("got: %s, want: %s", got, want)
	}

	internal := Notification{Operation: config.OpLivenessPulse, IsInternal: true}
	if got, want := internal.key(), InternalKey(config.OpLivenessPulse); got != want {
		t.Errorf("got: %s, want: %s", got, want)
	}
}
