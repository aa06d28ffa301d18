package gateway

import (
	"context"
	"database/sql"
	"testing"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
)

func TestNewRejectsInvalidPrefix(t *testing.T) {
	_, err := New(config.ConnectionOptions{DSN: "postgres://x", Prefix: "Horton"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for invalid prefix, got nil")
	}
}

func TestNewRejectsMissingDSN(t *testing.T) {
	_, err := New(config.ConnectionOptions{Prefix: "horton-meta"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing dsn, got nil")
	}
}

func TestPrefixName(t *testing.T) {
	g, err := New(config.ConnectionOptions{DSN: "postgres://x", Prefix: "horton-meta"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	name, err := g.PrefixName("event_queue")
	if err != nil {
		t.Fatalf("PrefixName failed: %v", err)
	}
	if name != "horton-meta__event_queue" {
		t.Errorf("PrefixName, got: %s, want: %s", name, "horton-meta__event_queue")
	}
}

func TestPrefixNameRejectsBadLogicalName(t *testing.T) {
	g, err := New(config.ConnectionOptions{DSN: "postgres://x", Prefix: "horton-meta"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := g.PrefixName("Bad Name"); err == nil {
		t.Fatal("expected error for invalid logical name, got nil")
	}
}

func TestTransactionRejectsWhenNotConnected(t *testing.T) {
	g, err := New(config.ConnectionOptions{DSN: "postgres://x", Prefix: "horton-meta"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = g.Transaction(context.Background(), func(ctx context.Context, tx *sql.Tx) error { return nil })
	if err == nil {
		t.Fatal("expected error when not connected")
	}
}
