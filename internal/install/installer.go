// Package install implements the Trigger Installer: it generates and
// installs/drops the per-source-table trigger + trigger-function
// pairs that feed the Event Queue, and can enumerate or tear down
// everything it has installed. Grounded on the teacher's
// triggers/database.go CreateTrigger (plpgsql trigger function text,
// DROP-then-CREATE idiom) and the pgnotify bus's createTableTrigger
// (JSON row projection via row_to_json).
package install

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/gateway"
)

// InstalledTrigger describes a listener trigger discovered in the
// database, grouped by source table with its operation set.
type InstalledTrigger struct {
	Table      string
	Operations []config.Operation
}

// Installer owns every per-source-table trigger+function pair.
type Installer struct {
	gw         *gateway.Gateway
	logger     *zap.Logger
	queueTable string // fully prefixed event-queue table name
}

// New creates an Installer. queueTable must be the fully prefixed
// event-queue table name (as returned by gateway.PrefixName) that
// generated trigger functions insert into.
func New(gw *gateway.Gateway, queueTable string, logger *zap.Logger) *Installer {
	return &Installer{gw: gw, logger: logger, queueTable: queueTable}
}

// Install creates (or idempotently re-creates) the trigger+function
// pair for a single source table.
func (i *Installer) Install(ctx context.Context, table string, listener config.TableListenerConfig) error {
	if err := config.ValidateIdentifier(table); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	for _, op := range listener.Operations {
		if !config.ValidOperations[op] {
			return &config.ErrUnknownOperation{Table: table, Operation: op}
		}
	}
	for _, col := range listener.RecordColumns {
		if err := config.ValidateColumn(col); err != nil {
			return fmt.Errorf("install: %w", err)
		}
	}

	funcName, err := i.gw.PrefixName(fmt.Sprintf("listener_trigger_%s_fn", table))
	if err != nil {
		return err
	}
	triggerName, err := i.gw.PrefixName(fmt.Sprintf("listener_trigger_%s", table))
	if err != nil {
		return err
	}

	funcSQL := buildTriggerFunctionSQL(funcName, i.queueTable, table, listener)
	triggerSQL := buildTriggerSQL(triggerName, funcName, table, listener.Operations)

	return i.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, funcSQL); err != nil {
			return fmt.Errorf("install: create trigger function for %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, triggerSQL); err != nil {
			return fmt.Errorf("install: create trigger for %s: %w", table, err)
		}
		return nil
	})
}

// DropListenerTrigger removes the trigger+function pair for a single
// source table in its own transaction.
func (i *Installer) DropListenerTrigger(ctx context.Context, table string) error {
	return i.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return i.dropListenerTriggerTx(ctx, tx, table)
	})
}

// dropListenerTriggerTx does the same work as DropListenerTrigger but
// runs inside a transaction the caller already holds, so Teardown can
// drop every table's pair atomically.
func (i *Installer) dropListenerTriggerTx(ctx context.Context, tx *sql.Tx, table string) error {
	funcName, err := i.gw.PrefixName(fmt.Sprintf("listener_trigger_%s_fn", table))
	if err != nil {
		return err
	}
	triggerName, err := i.gw.PrefixName(fmt.Sprintf("listener_trigger_%s", table))
	if err != nil {
		return err
	}

	dropTrigger := fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s",
		gateway.QuoteIdentifier(triggerName), gateway.QuoteIdentifier(table))
	if _, err := tx.ExecContext(ctx, dropTrigger); err != nil {
		return fmt.Errorf("install: drop trigger %s: %w", triggerName, err)
	}

	dropFunc := fmt.Sprintf("DROP FUNCTION IF EXISTS %s()", gateway.QuoteIdentifier(funcName))
	if _, err := tx.ExecContext(ctx, dropFunc); err != nil {
		return fmt.Errorf("install: drop function %s: %w", funcName, err)
	}
	return nil
}

// FindListenerTriggers discovers every trigger this Installer has
// created by querying the catalogue for names matching its prefix,
// grouped by source table with their operation sets.
//
// information_schema.triggers lists only triggers, never the
// functions they call, so a single LIKE on trigger_name is sufficient
// — no further exclusion is needed (and a "_fn" suffix exclusion would
// wrongly hide a legitimately-named source table like x_fn).
func (i *Installer) FindListenerTriggers(ctx context.Context) (map[string]InstalledTrigger, error) {
	likePattern := i.gw.Prefix() + "__listener_trigger_%"

	rows, err := i.gw.DB().QueryContext(ctx, `
		SELECT event_object_table, trigger_name, string_agg(DISTINCT event_manipulation, ',')
		  FROM information_schema.triggers
		 WHERE trigger_name LIKE $1
		 GROUP BY event_object_table, trigger_name
	`, likePattern)
	if err != nil {
		return nil, fmt.Errorf("install: find listener triggers: %w", err)
	}
	defer rows.Close()

	result := make(map[string]InstalledTrigger)
	for rows.Next() {
		var table, triggerName, opsCSV string
		if err := rows.Scan(&table, &triggerName, &opsCSV); err != nil {
			return nil, fmt.Errorf("install: scan listener trigger row: %w", err)
		}
		result[table] = InstalledTrigger{
			Table:      table,
			Operations: parseOperationsCSV(opsCSV),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("install: iterate listener triggers: %w", err)
	}

	return result, nil
}

// Teardown discovers and drops every installed listener trigger in
// one transaction, so a failure partway through leaves the
// previously-discovered set untouched rather than half torn down.
func (i *Installer) Teardown(ctx context.Context) error {
	installed, err := i.FindListenerTriggers(ctx)
	if err != nil {
		return err
	}

	err = i.gw.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for table := range installed {
			if err := i.dropListenerTriggerTx(ctx, tx, table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	i.logger.Info("trigger installer teardown complete", zap.Int("tables", len(installed)))
	return nil
}

func parseOperationsCSV(csv string) []config.Operation {
	var ops []config.Operation
	start := 0
	for idx := 0; idx <= len(csv); idx++ {
		if idx == len(csv) || csv[idx] == ',' {
			if idx > start {
				ops = append(ops, config.Operation(csv[start:idx]))
			}
			start = idx + 1
		}
	}
	return ops
}
