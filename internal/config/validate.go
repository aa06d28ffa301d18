package config

import (
	"fmt"
	"regexp"
)

// identifierGrammar is the conservative grammar spec.md mandates for
// the prefix and for every logical object name derived from it. It
// intentionally forbids digits and uppercase even though Postgres
// itself would accept them — see DESIGN.md's Open Question decisions.
var identifierGrammar = regexp.MustCompile(`^[a-z_-]+$`)

// columnGrammar bounds the column names accepted in RecordColumns.
// Same grammar as identifierGrammar; kept as a separate var because
// spec.md describes it as a distinct (if currently identical) check.
var columnGrammar = identifierGrammar

// ErrInvalidPrefix is returned when a prefix or logical name fails the
// identifier grammar check.
type ErrInvalidPrefix struct {
	Name string
}

func (e *ErrInvalidPrefix) Error() string {
	return fmt.Sprintf("config: %q does not match required grammar ^[a-z_-]+$", e.Name)
}

// ErrUnknownOperation is returned when a TableListenerConfig requests
// an operation outside {INSERT, UPDATE, DELETE}.
type ErrUnknownOperation struct {
	Table     string
	Operation Operation
}

func (e *ErrUnknownOperation) Error() string {
	return fmt.Sprintf("config: table %q requests unknown operation %q", e.Table, e.Operation)
}

// ValidateIdentifier checks a logical name (prefix, table name) against
// the grammar spec.md mandates.
func ValidateIdentifier(name string) error {
	if !identifierGrammar.MatchString(name) {
		return &ErrInvalidPrefix{Name: name}
	}
	return nil
}

// ValidateColumn checks a column name used in RecordColumns projection.
func ValidateColumn(name string) error {
	if !columnGrammar.MatchString(name) {
		return &ErrInvalidPrefix{Name: name}
	}
	return nil
}

// Validate checks every configuration fault spec.md §7 classifies as
// fatal at construction/connect time: invalid prefix, invalid table or
// column name, unknown operation.
func (c *Config) Validate() error {
	if c.Connection.DSN == "" {
		return fmt.Errorf("config: connection.dsn is required")
	}
	if err := ValidateIdentifier(c.Connection.Prefix); err != nil {
		return err
	}

	for table, listener := range c.TableListeners {
		if err := ValidateIdentifier(table); err != nil {
			return fmt.Errorf("config: table listener %q: %w", table, err)
		}
		if len(listener.Operations) == 0 {
			return fmt.Errorf("config: table listener %q: at least one operation is required", table)
		}
		for _, op := range listener.Operations {
			if !ValidOperations[op] {
				return &ErrUnknownOperation{Table: table, Operation: op}
			}
		}
		for _, col := range listener.RecordColumns {
			if err := ValidateColumn(col); err != nil {
				return fmt.Errorf("config: table listener %q column %q: %w", table, col, err)
			}
		}
	}

	switch c.EventQueue.OnHandlerFailure {
	case "", HandlerFailureSwallow, HandlerFailureRetain:
	default:
		return fmt.Errorf("config: event_queue.on_handler_failure must be %q or %q, got %q",
			HandlerFailureSwallow, HandlerFailureRetain, c.EventQueue.OnHandlerFailure)
	}

	return nil
}
