package install

import (
	"strings"
	"testing"

	"github.com/logimos/horton/internal/config"
)

func TestProjectionExprWholeRow(t *testing.T) {
	got := projectionExpr("NEW", nil)
	want := "row_to_json(NEW)"
	if got != want {
		t.Errorf("got: %s, want: %s", got, want)
	}
}

func TestProjectionExprEmptyColumns(t *testing.T) {
	got := projectionExpr("OLD", []string{})
	if got != "NULL" {
		t.Errorf("got: %s, want: NULL", got)
	}
}

func TestProjectionExprKeyedColumns(t *testing.T) {
	got := projectionExpr("NEW", []string{"id", "name"})
	if !strings.Contains(got, "json_build_object") {
		t.Errorf("expected json_build_object call, got: %s", got)
	}
	if !strings.Contains(got, `'id'`) || !strings.Contains(got, `NEW."id"`) {
		t.Errorf("expected id column reference, got: %s", got)
	}
	if !strings.Contains(got, `'name'`) || !strings.Contains(got, `NEW."name"`) {
		t.Errorf("expected name column reference, got: %s", got)
	}
}

func TestBuildTriggerSQLJoinsOperations(t *testing.T) {
	sql := buildTriggerSQL("horton-meta__listener_trigger_accounts", "horton-meta__listener_trigger_accounts_fn",
		"accounts", []config.Operation{config.OpInsert, config.OpUpdate})

	if !strings.Contains(sql, "AFTER INSERT OR UPDATE ON") {
		t.Errorf("expected combined operation clause, got: %s", sql)
	}
	if !strings.Contains(sql, "DROP TRIGGER IF EXISTS") {
		t.Errorf("expected idempotent drop, got: %s", sql)
	}
}

func TestBuildTriggerFunctionSQLHandlesDeleteFallback(t *testing.T) {
	sql := buildTriggerFunctionSQL("horton-meta__listener_trigger_accounts_fn", "horton-meta__event_queue",
		"accounts", config.TableListenerConfig{})

	if !strings.Contains(sql, "unique_violation") {
		t.Errorf("expected unique_violation handling, got: %s", sql)
	}
	if !strings.Contains(sql, "RETURN OLD") {
		t.Errorf("expected DELETE to return OLD, got: %s", sql)
	}
}
