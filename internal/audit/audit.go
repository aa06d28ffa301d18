// Package audit implements an optional, dependency-free JSON-file
// trail of delivered rows, intended purely as a debugging aid — not a
// correctness mechanism (at-most-once delivery is guaranteed by
// internal/queue's Dequeue, independent of whether anything audits
// it).
//
// Grounded on the teacher's persistence/json.go JSONPersistence store
// (one JSON file per record under a data directory, filepath.Glob-based
// listing), narrowed from its WorkflowInstance/StepExecution shape to
// a single flat DeliveryRecord and stripped of the unrelated
// text/template resolution helpers that package also carried.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/logimos/horton/internal/dispatch"
	"github.com/logimos/horton/internal/queue"
)

// DeliveryRecord is one audited row delivery.
type DeliveryRecord struct {
	RowID      int64     `json:"row_id"`
	TableName  string    `json:"table_name"`
	Operation  string    `json:"operation"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Trail stores delivery records as one JSON file per row under dataDir.
type Trail struct {
	dataDir string
}

// New creates dataDir if it doesn't already exist and returns a Trail
// rooted there.
func New(dataDir string) (*Trail, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create data dir: %w", err)
	}
	return &Trail{dataDir: dataDir}, nil
}

// Record writes one delivery record, named by row ID.
func (t *Trail) Record(rec DeliveryRecord) error {
	filename := filepath.Join(t.dataDir, fmt.Sprintf("%d.json", rec.RowID))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	return nil
}

// Get retrieves a single delivery record by row ID.
func (t *Trail) Get(rowID int64) (*DeliveryRecord, error) {
	filename := filepath.Join(t.dataDir, fmt.Sprintf("%d.json", rowID))

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audit: record %d not found", rowID)
		}
		return nil, fmt.Errorf("audit: read record: %w", err)
	}

	var rec DeliveryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("audit: unmarshal record: %w", err)
	}
	return &rec, nil
}

// List returns every delivery record currently on disk, skipping any
// file that fails to read or parse rather than aborting the listing.
func (t *Trail) List() ([]*DeliveryRecord, error) {
	files, err := filepath.Glob(filepath.Join(t.dataDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("audit: list records: %w", err)
	}

	records := make([]*DeliveryRecord, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var rec DeliveryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Handler returns a dispatch.Handler that records every row it
// receives, intended for registration via Dispatcher.OnAny.
func (t *Trail) Handler() dispatch.Handler {
	return func(ctx context.Context, row queue.Row) error {
		return t.Record(DeliveryRecord{
			RowID:       row.ID,
			TableName:   row.TableName,
			Operation:   string(row.Operation),
			DeliveredAt: time.Now(),
		})
	}
}
