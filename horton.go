// Package horton implements change data capture for PostgreSQL-
// compatible databases without logical replication: row triggers
// write change rows into a managed queue table, a channel
// notification wakes a listener, and user-registered handlers receive
// each row exactly once.
//
// See internal/gateway, internal/install, internal/queue, and
// internal/liveness for the four subsystems this package wires
// together; horton.go itself is the Dispatcher described in
// SPEC_FULL.md §4.5.
package horton

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/gateway"
	"github.com/logimos/horton/internal/install"
	"github.com/logimos/horton/internal/liveness"
	"github.com/logimos/horton/internal/queue"
)

// Config is the host-facing configuration for a Dispatcher.
type Config struct {
	Connection      config.ConnectionOptions
	TableListeners  map[string]config.TableListenerConfig
	EventQueue      config.EventQueueOptions
	LivenessChecker config.LivenessCheckerOptions

	// Logger defaults to zap.NewProduction() if nil.
	Logger *zap.Logger
}

// Dispatcher is the top-level lifecycle object and user-facing event
// bus. Per spec.md §9's cyclic-reference note, it holds both the
// Event Queue and the Liveness Checker; the Liveness Checker holds
// only the Event Queue; the Event Queue holds neither.
type Dispatcher struct {
	cfg    Config
	logger *zap.Logger

	gw        *gateway.Gateway
	installer *install.Installer
	q         *queue.Queue
	live      *liveness.Checker
	bus       *dispatch.Bus

	onHealth func(liveness.Health)

	unsubscribes []func()
}

// New validates cfg and constructs a Dispatcher without touching the
// network. Call Connect to actually dial the database.
func New(cfg Config) (*Dispatcher, error) {
	logger := cfg.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("horton: default logger: %w", err)
		}
	}

	full := &config.Config{
		Connection:      cfg.Connection,
		TableListeners:  cfg.TableListeners,
		EventQueue:      cfg.EventQueue,
		LivenessChecker: cfg.LivenessChecker,
	}
	config.ApplyDefaults(full)
	if err := full.Validate(); err != nil {
		return nil, fmt.Errorf("horton: invalid configuration: %w", err)
	}
	cfg.Connection = full.Connection
	cfg.TableListeners = full.TableListeners
	cfg.EventQueue = full.EventQueue
	cfg.LivenessChecker = full.LivenessChecker

	gw, err := gateway.New(cfg.Connection, logger)
	if err != nil {
		return nil, fmt.Errorf("horton: gateway: %w", err)
	}

	q, err := queue.New(gw, cfg.EventQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("horton: event queue: %w", err)
	}

	installer := install.New(gw, q.TableName(), logger)
	bus := dispatch.New(logger)

	d := &Dispatcher{
		cfg:       cfg,
		logger:    logger,
		gw:        gw,
		installer: installer,
		q:         q,
		bus:       bus,
	}
	d.live = liveness.New(q, cfg.LivenessChecker, logger, nil, d.handleHealth)

	return d, nil
}

// On subscribes fn to rows for an exact (table, operation) pair.
// Returns an unsubscribe function.
func (d *Dispatcher) On(table string, op config.Operation, fn dispatch.Handler) func() {
	return d.bus.On(table, op, fn)
}

// OnAny subscribes fn to every operation on table.
func (d *Dispatcher) OnAny(table string, fn dispatch.Handler) func() {
	return d.bus.OnAny(table, fn)
}

// OnHealth registers the single callback invoked with the Liveness
// Checker's status after every pulse, whether or not the status
// changed. A second call replaces the first.
func (d *Dispatcher) OnHealth(fn func(liveness.Health)) {
	d.onHealth = fn
}

// QueueDepth reports how many rows are currently sitting in the Event
// Queue, awaiting dequeue.
func (d *Dispatcher) QueueDepth(ctx context.Context) (int, error) {
	return d.q.Depth(ctx)
}

func (d *Dispatcher) handleHealth(h liveness.Health) {
	if d.onHealth != nil {
		d.onHealth(h)
	}

	switch h.Status {
	case liveness.StatusUnhealthy:
		d.logger.Warn("horton: liveness degraded, reconnecting event queue")
		go func() {
			if err := d.q.Reconnect(context.Background(), 5*time.Second); err != nil {
				d.logger.Error("horton: reconnect failed", zap.Error(err))
			}
		}()
	case liveness.StatusDead:
		d.logger.Error("horton: liveness dead, disconnecting")
		go func() {
			if err := d.Disconnect(context.Background(), 5*time.Second); err != nil {
				d.logger.Error("horton: disconnect on dead liveness failed", zap.Error(err))
			}
		}()
	}
}

// Connect dials the database, optionally initialises the queue table,
// connects the Event Queue, installs listener triggers for every
// configured table, subscribes the Dispatcher's own dequeue loop, and
// starts the Liveness Checker.
func (d *Dispatcher) Connect(ctx context.Context, initializeQueue bool) error {
	if err := d.gw.Connect(ctx); err != nil {
		return fmt.Errorf("horton: connect gateway: %w", err)
	}

	if initializeQueue {
		if err := d.q.Initialize(ctx); err != nil {
			return fmt.Errorf("horton: initialize queue: %w", err)
		}
	}

	if err := d.q.Connect(ctx); err != nil {
		return fmt.Errorf("horton: connect queue: %w", err)
	}

	for table, listener := range d.cfg.TableListeners {
		if err := d.installer.Install(ctx, table, listener); err != nil {
			return fmt.Errorf("horton: install trigger for %q: %w", table, err)
		}
		for _, op := range listener.Operations {
			d.subscribeDequeueLoop(table, op)
		}
	}

	if err := d.live.Start(ctx); err != nil {
		return fmt.Errorf("horton: start liveness checker: %w", err)
	}

	d.logger.Info("horton dispatcher connected", zap.Int("tables", len(d.cfg.TableListeners)))
	return nil
}

// ConnectGatewayOnly opens the database connection without installing
// any triggers, starting the queue listener, or starting the Liveness
// Checker. It exists for Teardown, which needs a live connection but
// must not recreate the objects it is about to drop.
func (d *Dispatcher) ConnectGatewayOnly(ctx context.Context) error {
	return d.gw.Connect(ctx)
}

// subscribeDequeueLoop binds the Event Queue's push/reconciliation
// notifications for (table, op) to a Dequeue call whose callback fans
// the row out through the Dispatcher's bus, per spec §4.5: both the
// channel-specific and wildcard handlers fire from the same dequeue.
func (d *Dispatcher) subscribeDequeueLoop(table string, op config.Operation) {
	unsubscribe := d.q.On(queue.QueuedKey(table, op), func(n queue.Notification) {
		ctx := context.Background()

		err := d.q.Dequeue(ctx, n.RowID, func(row queue.Row) error {
			emitErr := d.bus.EmitSync(ctx, table, op, row)
			if emitErr != nil && d.q.OnHandlerFailureMode() == config.HandlerFailureSwallow {
				// Swallow mode: EmitSync already logged the individual
				// handler failures. The row is still deleted, matching
				// the spec default of never retrying a handler.
				return nil
			}
			return emitErr
		})
		if err != nil && err != queue.ErrRowGone {
			d.logger.Warn("horton: dequeue failed",
				zap.String("table", table), zap.String("operation", string(op)), zap.Error(err))
		}
	})
	d.unsubscribes = append(d.unsubscribes, unsubscribe)
}

// Disconnect stops the Liveness Checker, disconnects the Event Queue
// (awaiting gracePeriod for in-flight dequeues), and disconnects the
// Gateway.
func (d *Dispatcher) Disconnect(ctx context.Context, gracePeriod time.Duration) error {
	d.live.Stop()

	for _, unsubscribe := range d.unsubscribes {
		unsubscribe()
	}
	d.unsubscribes = nil

	if err := d.q.Disconnect(gracePeriod); err != nil {
		return fmt.Errorf("horton: disconnect queue: %w", err)
	}
	if err := d.gw.Disconnect(); err != nil {
		return fmt.Errorf("horton: disconnect gateway: %w", err)
	}

	d.logger.Info("horton dispatcher disconnected")
	return nil
}

// Teardown drops every installed listener trigger and the queue
// table's own trigger, then the queue table itself, each inside one
// transaction.
func (d *Dispatcher) Teardown(ctx context.Context) error {
	if err := d.installer.Teardown(ctx); err != nil {
		return fmt.Errorf("horton: teardown listener triggers: %w", err)
	}
	if err := d.q.Teardown(ctx); err != nil {
		return fmt.Errorf("horton: teardown queue: %w", err)
	}
	return nil
}
