package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/liveness"
)

func TestHandleHealthzReportsObservedStatus(t *testing.T) {
	s := New("127.0.0.1:0", zap.NewNop())
	s.ObserveHealth(liveness.Health{Status: liveness.StatusHealthy, LastHeartbeatAt: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != string(liveness.StatusHealthy) {
		t.Errorf("got status %v, want %s", body["status"], liveness.StatusHealthy)
	}
}

func TestHandleLivezReturns503WhenDead(t *testing.T) {
	s := New("127.0.0.1:0", zap.NewNop())
	s.ObserveHealth(liveness.Health{Status: liveness.StatusDead})

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", rec.Code)
	}
}

func TestHandleLivezReturns200WhenUnhealthy(t *testing.T) {
	s := New("127.0.0.1:0", zap.NewNop())
	s.ObserveHealth(liveness.Health{Status: liveness.StatusUnhealthy})

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200 for unhealthy-but-not-dead", rec.Code)
	}
}

func TestHandleQueueStatsReportsObservedValue(t *testing.T) {
	s := New("127.0.0.1:0", zap.NewNop())
	s.ObserveQueueStats(QueueStats{PendingRows: 42, AsOf: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/queue/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var stats QueueStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if stats.PendingRows != 42 {
		t.Errorf("got %d, want 42", stats.PendingRows)
	}
}
