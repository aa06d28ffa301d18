// Package gateway wraps the database/sql connection pool: transaction
// scope, identifier/literal escaping, and the "<prefix>__<name>" object
// naming convention shared by every other horton component. Grounded
// on the teacher's triggers/database.go dial/ping pattern and on the
// pgnotify event bus's split between a pooled *sql.DB and a dedicated
// pq.Listener connection.
package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
)

// Gateway owns the connection pool. All mutating operations borrow
// one connection, use it exclusively for a transaction, and release
// it; the Event Queue's notification listener opens its own dedicated
// connection directly from the DSN via pq.Listener.
type Gateway struct {
	logger *zap.Logger
	dsn    string
	prefix string
	db     *sql.DB
}

// New validates the connection options and constructs a Gateway. The
// pool is not opened until Connect is called.
func New(opts config.ConnectionOptions, logger *zap.Logger) (*Gateway, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("gateway: dsn is required")
	}
	if err := config.ValidateIdentifier(opts.Prefix); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	return &Gateway{
		logger: logger,
		dsn:    opts.DSN,
		prefix: opts.Prefix,
	}, nil
}

// Connect opens the pooled connection and verifies it with a ping.
// Idempotent: calling it twice is a no-op once the pool is open.
func (g *Gateway) Connect(ctx context.Context) error {
	if g.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", g.dsn)
	if err != nil {
		return fmt.Errorf("gateway: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("gateway: ping: %w", err)
	}

	g.db = db
	g.logger.Info("gateway connected", zap.String("prefix", g.prefix))
	return nil
}

// Disconnect drains in-flight transactions and closes the pool.
// Idempotent.
func (g *Gateway) Disconnect() error {
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

// DB exposes the underlying pool for components that need raw access
// (the Trigger Installer's catalogue queries, for example).
func (g *Gateway) DB() *sql.DB {
	return g.db
}

// DSN returns the connection string, used by the Event Queue to open
// its dedicated pq.Listener connection.
func (g *Gateway) DSN() string {
	return g.dsn
}

// Transaction borrows one connection, begins a transaction, passes it
// to fn, and commits on normal return or rolls back on any failure.
// The connection is always released.
func (g *Gateway) Transaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if g.db == nil {
		return fmt.Errorf("gateway: not connected")
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("gateway: begin: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			g.logger.Error("gateway: rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gateway: commit: %w", err)
	}
	return nil
}

// Prefix returns the configured object-name prefix.
func (g *Gateway) Prefix() string {
	return g.prefix
}

// PrefixName returns "<prefix>__<logicalName>", validating that
// logicalName matches the same grammar as the prefix itself.
func (g *Gateway) PrefixName(logicalName string) (string, error) {
	if err := config.ValidateIdentifier(logicalName); err != nil {
		return "", fmt.Errorf("gateway: %w", err)
	}
	return g.prefix + "__" + logicalName, nil
}

// QuoteIdentifier quotes a SQL identifier for safe interpolation,
// delegating to lib/pq rather than hand-rolling escaping.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteLiteral quotes a SQL string literal for safe interpolation,
// delegating to lib/pq.
func QuoteLiteral(value string) string {
	return pq.QuoteLiteral(value)
}
