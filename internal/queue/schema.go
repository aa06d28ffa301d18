package queue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logimos/horton/internal/gateway"
)

// expectedColumn describes one column of the fixed queue-table schema.
type expectedColumn struct {
	name     string
	dataType string
	nullable bool
}

var expectedColumns = []expectedColumn{
	{"id", "bigint", false},
	{"table_name", "text", false},
	{"operation", "text", false},
	{"previous_record", "jsonb", true},
	{"current_record", "jsonb", true},
	{"queued_at", "timestamp with time zone", false},
}

func buildCreateTableSQL(tableName string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	table_name TEXT NOT NULL,
	operation TEXT NOT NULL,
	previous_record JSONB,
	current_record JSONB,
	queued_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
`, gateway.QuoteIdentifier(tableName))
}

// validateSchema compares the live column signature of tableName
// against expectedColumns, erroring out if the existing table (one
// horton did not create, or created by an earlier incompatible
// version) does not match. Per spec.md §4.3: "Queue table exists but
// is not valid" is a fatal startup condition, not a silent migration.
func validateSchema(ctx context.Context, tx *sql.Tx, tableName string) error {
	rows, err := tx.QueryContext(ctx, `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position
`, bareTableName(tableName))
	if err != nil {
		return fmt.Errorf("queue: inspect schema: %w", err)
	}
	defer rows.Close()

	found := make(map[string]expectedColumn)
	for rows.Next() {
		var name, dataType, isNullable string
		if err := rows.Scan(&name, &dataType, &isNullable); err != nil {
			return fmt.Errorf("queue: scan schema row: %w", err)
		}
		found[name] = expectedColumn{name: name, dataType: dataType, nullable: isNullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("queue: read schema: %w", err)
	}

	for _, want := range expectedColumns {
		got, ok := found[want.name]
		if !ok {
			return &ErrSchemaMismatch{Table: tableName, Reason: fmt.Sprintf("missing column %q", want.name)}
		}
		if got.dataType != want.dataType {
			return &ErrSchemaMismatch{Table: tableName, Reason: fmt.Sprintf("column %q has type %q, want %q", want.name, got.dataType, want.dataType)}
		}
		if got.nullable != want.nullable {
			return &ErrSchemaMismatch{Table: tableName, Reason: fmt.Sprintf("column %q nullability mismatch", want.name)}
		}
	}

	return nil
}

// bareTableName strips a schema-qualification if present; horton's
// prefixed names never carry one, but information_schema.columns
// matches on the unqualified relation name regardless.
func bareTableName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// ErrSchemaMismatch reports that an existing queue table does not
// match the schema horton requires.
type ErrSchemaMismatch struct {
	Table  string
	Reason string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("queue: table %q is not a valid horton queue table: %s", e.Table, e.Reason)
}
