package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/logimos/horton/internal/queue"
)

func TestNewHTTPForwardSendsRowAsJSON(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHTTPForward(HTTPForwardOptions{URL: srv.URL}, zap.NewNop())

	err := h(context.Background(), queue.Row{ID: 1, TableName: "accounts", Operation: "INSERT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) == 0 {
		t.Fatal("expected a non-empty request body")
	}
}

func TestNewHTTPForwardReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewHTTPForward(HTTPForwardOptions{URL: srv.URL}, zap.NewNop())

	if err := h(context.Background(), queue.Row{}); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
