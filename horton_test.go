package horton

import (
	"testing"

	"github.com/logimos/horton/internal/config"
)

func TestNewRejectsMissingDSN(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected an error for a missing DSN")
	}
}

func TestNewAppliesDefaultsAndValidates(t *testing.T) {
	d, err := New(Config{
		Connection: config.ConnectionOptions{DSN: "postgres://localhost/db"},
		TableListeners: map[string]config.TableListenerConfig{
			"accounts": {Operations: []config.Operation{config.OpInsert}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.cfg.Connection.Prefix != "horton-meta" {
		t.Errorf("expected default prefix to be applied, got %q", d.cfg.Connection.Prefix)
	}
}

func TestNewRejectsUnknownOperation(t *testing.T) {
	_, err := New(Config{
		Connection: config.ConnectionOptions{DSN: "postgres://localhost/db"},
		TableListeners: map[string]config.TableListenerConfig{
			"accounts": {Operations: []config.Operation{"TRUNCATE"}},
		},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown operation")
	}
}
