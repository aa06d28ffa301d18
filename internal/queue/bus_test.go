package queue

import (
	"testing"

	"github.com/logimos/horton/internal/config"
)

func TestNotifyBusDeliversToMatchingKey(t *testing.T) {
	b := newNotifyBus()
	var got Notification
	b.on(QueuedKey("accounts", config.OpInsert), func(n Notification) { got = n })

	want := Notification{RowID: 1, TableName: "accounts", Operation: config.OpInsert}
	b.emit(want)

	if got != want {
		t.Errorf("got: %+v, want: %+v", got, want)
	}
}

func TestNotifyBusIgnoresOtherKeys(t *testing.T) {
	b := newNotifyBus()
	called := false
	b.on(QueuedKey("accounts", config.OpInsert), func(Notification) { called = true })

	b.emit(Notification{TableName: "accounts", Operation: config.OpUpdate})

	if called {
		t.Error("handler should not have been invoked for a different key")
	}
}

func TestNotifyBusUnsubscribe(t *testing.T) {
	b := newNotifyBus()
	calls := 0
	unsubscribe := b.on(QueuedKey("accounts", config.OpInsert), func(Notification) { calls++ })

	b.emit(Notification{TableName: "accounts", Operation: config.OpInsert})
	unsubscribe()
	b.emit(Notification{TableName: "accounts", Operation: config.OpInsert})

	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestNotifyBusMultipleHandlers(t *testing.T) {
	b := newNotifyBus()
	var a, c int
	b.on(QueuedKey("accounts", config.OpDelete), func(Notification) { a++ })
	b.on(QueuedKey("accounts", config.OpDelete), func(Notification) { c++ })

	b.emit(Notification{TableName: "accounts", Operation: config.OpDelete})

	if a != 1 || c != 1 {
		t.Errorf("got a=%d c=%d, want both 1", a, c)
	}
}
