package config

import "testing"

func TestDefaultApplied(t *testing.T) {
	cfg := &Config{Connection: ConnectionOptions{DSN: "postgres://localhost/db"}}
	ApplyDefaults(cfg)

	if cfg.Connection.Prefix != "horton-meta" {
		t.Errorf("Prefix, got: %s, want: %s", cfg.Connection.Prefix, "horton-meta")
	}
	if cfg.Connection.MaxConns != 10 {
		t.Errorf("MaxConns, got: %d, want: %d", cfg.Connection.MaxConns, 10)
	}
	if cfg.EventQueue.ReconciliationFrequencyMs != 5000 {
		t.Errorf("ReconciliationFrequencyMs, got: %d, want: %d", cfg.EventQueue.ReconciliationFrequencyMs, 5000)
	}
	if cfg.LivenessChecker.PulseIntervalMs != 10000 {
		t.Errorf("PulseIntervalMs, got: %d, want: %d", cfg.LivenessChecker.PulseIntervalMs, 10000)
	}
	if cfg.LivenessChecker.MaxMissedPulses != 3 {
		t.Errorf("MaxMissedPulses, got: %d, want: %d", cfg.LivenessChecker.MaxMissedPulses, 3)
	}
}

func TestValidatePrefixGrammar(t *testing.T) {
	cases := []struct {
		prefix string
		wantOK bool
	}{
		{"horton-meta", true},
		{"horton_meta", true},
		{"abc", true},
		{"Horton", false},
		{"horton1", false},
		{"horton meta", false},
		{"", false},
	}

	for _, tc := range cases {
		cfg := Default()
		cfg.Connection.DSN = "postgres://localhost/db"
		cfg.Connection.Prefix = tc.prefix

		err := cfg.Validate()
		gotOK := err == nil
		if gotOK != tc.wantOK {
			t.Errorf("Validate(prefix=%q), got ok=%v, want ok=%v (err=%v)", tc.prefix, gotOK, tc.wantOK, err)
		}
	}
}

func TestValidateUnknownOperation(t *testing.T) {
	cfg := Default()
	cfg.Connection.DSN = "postgres://localhost/db"
	cfg.TableListeners["accounts"] = TableListenerConfig{
		Operations: []Operation{"TRUNCATE"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown operation, got nil")
	}

	var unknownOpErr *ErrUnknownOperation
	if !isUnknownOperation(err, &unknownOpErr) {
		t.Errorf("expected ErrUnknownOperation, got: %v", err)
	}
}

func isUnknownOperation(err error, target **ErrUnknownOperation) bool {
	e, ok := err.(*ErrUnknownOperation)
	if ok {
		*target = e
	}
	return ok
}

func TestValidateRecordColumnsGrammar(t *testing.T) {
	cfg := Default()
	cfg.Connection.DSN = "postgres://localhost/db"
	cfg.TableListeners["accounts"] = TableListenerConfig{
		Operations:    []Operation{OpUpdate},
		RecordColumns: []string{"name", "BadColumn"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid column name, got nil")
	}
}

func TestLoadYAML(t *testing.T) {
	data := []byte(`
connection:
  dsn: postgres://localhost/db
  prefix: horton-meta
table_listeners:
  accounts:
    operations: [INSERT, UPDATE]
    record_columns: [id, name]
`)

	cfg, err := LoadYAML(data)
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}

	listener, ok := cfg.TableListeners["accounts"]
	if !ok {
		t.Fatal("expected accounts table listener")
	}
	if len(listener.Operations) != 2 {
		t.Errorf("Operations, got: %d, want: %d", len(listener.Operations), 2)
	}
	if cfg.EventQueue.ReconciliationFrequencyMs != 5000 {
		t.Errorf("ReconciliationFrequencyMs default not applied, got: %d", cfg.EventQueue.ReconciliationFrequencyMs)
	}
}
