package install

import (
	"fmt"
	"strings"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

// buildTriggerFunctionSQL generates the plpgsql function a listener
// trigger executes. It projects OLD/NEW onto the configured record
// columns (or the whole row, or null) and inserts one row into the
// queue table. A unique-constraint violation on the insert is caught
// and logged as a notice rather than aborting the host transaction,
// per spec.md §4.2.
func buildTriggerFunctionSQL(funcName, queueTable, table string, listener config.TableListenerConfig) string {
	insertColumns := "table_name, operation, previous_record, current_record, queued_at"

	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION %[1]s() RETURNS TRIGGER AS $$
BEGIN
	BEGIN
		IF TG_OP = 'INSERT' THEN
			INSERT INTO %[2]s (%[3]s)
			VALUES (%[4]s, TG_OP, NULL, %[5]s, clock_timestamp());
		ELSIF TG_OP = 'UPDATE' THEN
			INSERT INTO %[2]s (%[3]s)
			VALUES (%[4]s, TG_OP, %[6]s, %[5]s, clock_timestamp());
		ELSIF TG_OP = 'DELETE' THEN
			INSERT INTO %[2]s (%[3]s)
			VALUES (%[4]s, TG_OP, %[6]s, %[6]s, clock_timestamp());
		END IF;
	EXCEPTION WHEN unique_violation THEN
		RAISE NOTICE 'horton: duplicate queue row for table %%, skipping', TG_TABLE_NAME;
	END;

	IF TG_OP = 'DELETE' THEN
		RETURN OLD;
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;
`,
		gateway.QuoteIdentifier(funcName),
		gateway.QuoteIdentifier(queueTable),
		insertColumns,
		gateway.QuoteLiteral(table),
		projectionExpr("NEW", listener.RecordColumns),
		projectionExpr("OLD", listener.RecordColumns),
	)
}

// buildTriggerSQL generates the DROP-then-CREATE pair that binds the
// trigger function to the operations requested for the table.
func buildTriggerSQL(triggerName, funcName, table string, operations []config.Operation) string {
	opNames := make([]string, len(operations))
	for i, op := range operations {
		opNames[i] = string(op)
	}

	return fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s ON %[2]s;
CREATE TRIGGER %[1]s
AFTER %[3]s ON %[2]s
FOR EACH ROW EXECUTE FUNCTION %[4]s();
`,
		gateway.QuoteIdentifier(triggerName),
		gateway.QuoteIdentifier(table),
		strings.Join(opNames, " OR "),
		gateway.QuoteIdentifier(funcName),
	)
}

// projectionExpr builds the SQL expression that computes previousRecord
// or currentRecord from a row variable (OLD or NEW) per the projection
// rule in spec.md §3/§4.2:
//
//   - nil columns: whole row, or NULL if the row variable isn't bound
//     for this operation (handled by the caller passing the right
//     combination per TG_OP branch — see buildTriggerFunctionSQL).
//   - empty (non-nil) columns: NULL.
//   - non-empty columns: a keyed json object, in column order.
func projectionExpr(record string, columns []string) string {
	if columns == nil {
		return fmt.Sprintf("row_to_json(%s)", record)
	}
	if len(columns) == 0 {
		return "NULL"
	}

	pairs := make([]string, 0, len(columns)*2)
	for _, col := range columns {
		pairs = append(pairs, gateway.QuoteLiteral(col), fmt.Sprintf("%s.%s", record, gateway.QuoteIdentifier(col)))
	}
	return fmt.Sprintf("json_build_object(%s)", strings.Join(pairs, ", "))
}
