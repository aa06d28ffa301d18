package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logimos/horton/internal/queue"
)

func TestRecordAndGet(t *testing.T) {
	trail, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DeliveryRecord{RowID: 7, TableName: "accounts", Operation: "INSERT", DeliveredAt: time.Now()}
	if err := trail.Record(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := trail.Get(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RowID != want.RowID || got.TableName != want.TableName {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetMissingRecord(t *testing.T) {
	trail, _ := New(t.TempDir())

	if _, err := trail.Get(999); err == nil {
		t.Fatal("expected an error for a missing record")
	}
}

func TestListSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	trail, _ := New(dir)

	trail.Record(DeliveryRecord{RowID: 1, TableName: "accounts", Operation: "INSERT"})
	trail.Record(DeliveryRecord{RowID: 2, TableName: "accounts", Operation: "UPDATE"})

	// A malformed file alongside two valid ones should not abort listing.
	badFile := filepath.Join(dir, "bad.json")
	if err := writeFile(badFile, "not json"); err != nil {
		t.Fatalf("unexpected error writing bad file: %v", err)
	}

	records, err := trail.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestHandlerRecordsRow(t *testing.T) {
	trail, _ := New(t.TempDir())
	h := trail.Handler()

	if err := h(context.Background(), queue.Row{ID: 3, TableName: "accounts", Operation: "DELETE"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := trail.Get(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Operation != "DELETE" {
		t.Errorf("got operation %q, want DELETE", got.Operation)
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
