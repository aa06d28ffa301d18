package queue

import "testing"

func TestBareTableNameStripsSchema(t *testing.T) {
	if got := bareTableName("public.horton-meta__event_queue"); got != "horton-meta__event_queue" {
		t.Errorf("got: %s", got)
	}
}

func TestBareTableNameUnqualified(t *testing.T) {
	if got := bareTableName("horton-meta__event_queue"); got != "horton-meta__event_queue" {
		t.Errorf("got: %s", got)
	}
}

func TestErrSchemaMismatchMessage(t *testing.T) {
	err := &ErrSchemaMismatch{Table: "horton-meta__event_queue", Reason: "missing column \"operation\""}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
