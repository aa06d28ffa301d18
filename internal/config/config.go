// Package config holds the declarative configuration types accepted by
// the Dispatcher: connection options, per-table listener definitions,
// and the tuning knobs for the Event Queue and Liveness Checker.
package config

// Operation is one of the trigger operations horton can watch for, or
// the reserved internal pulse operation used by the Liveness Checker.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"

	// OpLivenessPulse never appears in a host-facing TableListenerConfig;
	// it is the operation recorded on internal heartbeat rows.
	OpLivenessPulse Operation = "LIVENESS_PULSE"
)

// ValidOperations is the subset of Operation values a TableListenerConfig
// may request.
var ValidOperations = map[Operation]bool{
	OpInsert: true,
	OpUpdate: true,
	OpDelete: true,
}

// KnownOperations is every Operation value the Event Queue itself may
// carry on a row, including OpLivenessPulse. Used to validate
// notification payloads, where an internal row is just as legitimate
// as a host-configured one.
var KnownOperations = map[Operation]bool{
	OpInsert:        true,
	OpUpdate:        true,
	OpDelete:        true,
	OpLivenessPulse: true,
}

// ConnectionOptions describes how to reach the database and how
// managed objects are named once there.
type ConnectionOptions struct {
	// DSN is a standard PostgreSQL connection string, passed straight
	// through to lib/pq.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// Prefix namespaces every object horton creates. Defaults to
	// "horton-meta". Must match ^[a-z_-]+$.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`

	// MaxConns is read from configuration and defaulted to 10 by
	// ApplyDefaults. The Gateway does not apply it to its pool, so the
	// pool size is database/sql's default (no limit on open connections).
	MaxConns int `yaml:"max_conns" mapstructure:"max_conns"`
}

// TableListenerConfig declares a single source table's subscription.
//
//   - nil RecordColumns: whole-row payload.
//   - empty (non-nil, len==0) RecordColumns: null payload.
//   - non-empty RecordColumns: project onto those columns, in order.
type TableListenerConfig struct {
	Operations    []Operation `yaml:"operations" mapstructure:"operations"`
	RecordColumns []string    `yaml:"record_columns,omitempty" mapstructure:"record_columns"`
}

// HandlerFailureMode controls what Dequeue does when a user callback
// returns an error.
type HandlerFailureMode string

const (
	// HandlerFailureSwallow is the spec default: the error is logged,
	// the dequeue transaction still commits, and the row is removed.
	HandlerFailureSwallow HandlerFailureMode = "swallow"

	// HandlerFailureRetain rolls back the dequeue transaction on
	// handler failure, leaving the row for the next reconciliation
	// pass. Opt-in only; see DESIGN.md's Open Question decisions.
	HandlerFailureRetain HandlerFailureMode = "retain"
)

// EventQueueOptions tunes the Event Queue.
type EventQueueOptions struct {
	// ReconciliationFrequencyMs is how often the reconciler scans for
	// unclaimed rows. Defaults to 5000.
	ReconciliationFrequencyMs int `yaml:"reconciliation_frequency_ms" mapstructure:"reconciliation_frequency_ms"`

	// OnHandlerFailure controls row retention on callback failure.
	// Defaults to HandlerFailureSwallow.
	OnHandlerFailure HandlerFailureMode `yaml:"on_handler_failure" mapstructure:"on_handler_failure"`
}

// LivenessCheckerOptions tunes the Liveness Checker.
type LivenessCheckerOptions struct {
	// PulseIntervalMs is how often an internal heartbeat row is
	// enqueued. Defaults to 10000.
	PulseIntervalMs int `yaml:"pulse_interval_ms" mapstructure:"pulse_interval_ms"`

	// MaxMissedPulses controls the healthy/unhealthy/dead thresholds.
	// Defaults to 3.
	MaxMissedPulses int `yaml:"max_missed_pulses" mapstructure:"max_missed_pulses"`
}

// Config is the full declarative configuration for a Dispatcher.
type Config struct {
	Connection      ConnectionOptions              `yaml:"connection" mapstructure:"connection"`
	TableListeners  map[string]TableListenerConfig `yaml:"table_listeners" mapstructure:"table_listeners"`
	EventQueue      EventQueueOptions              `yaml:"event_queue" mapstructure:"event_queue"`
	LivenessChecker LivenessCheckerOptions         `yaml:"liveness_checker" mapstructure:"liveness_checker"`
}

// Default returns a configuration with every optional knob set to its
// spec-mandated default. Connection.DSN and TableListeners are left
// for the host to fill in.
func Default() *Config {
	return &Config{
		Connection: ConnectionOptions{
			Prefix:   "horton-meta",
			MaxConns: 10,
		},
		TableListeners: make(map[string]TableListenerConfig),
		EventQueue: EventQueueOptions{
			ReconciliationFrequencyMs: 5000,
			OnHandlerFailure:          HandlerFailureSwallow,
		},
		LivenessChecker: LivenessCheckerOptions{
			PulseIntervalMs: 10000,
			MaxMissedPulses: 3,
		},
	}
}

// ApplyDefaults fills zero-valued optional fields on a loaded config
// without touching fields the host already set explicitly.
func ApplyDefaults(cfg *Config) {
	d := Default()

	if cfg.Connection.Prefix == "" {
		cfg.Connection.Prefix = d.Connection.Prefix
	}
	if cfg.Connection.MaxConns == 0 {
		cfg.Connection.MaxConns = d.Connection.MaxConns
	}
	if cfg.TableListeners == nil {
		cfg.TableListeners = make(map[string]TableListenerConfig)
	}
	if cfg.EventQueue.ReconciliationFrequencyMs == 0 {
		cfg.EventQueue.ReconciliationFrequencyMs = d.EventQueue.ReconciliationFrequencyMs
	}
	if cfg.EventQueue.OnHandlerFailure == "" {
		cfg.EventQueue.OnHandlerFailure = d.EventQueue.OnHandlerFailure
	}
	if cfg.LivenessChecker.PulseIntervalMs == 0 {
		cfg.LivenessChecker.PulseIntervalMs = d.LivenessChecker.PulseIntervalMs
	}
	if cfg.LivenessChecker.MaxMissedPulses == 0 {
		cfg.LivenessChecker.MaxMissedPulses = d.LivenessChecker.MaxMissedPulses
	}
}
