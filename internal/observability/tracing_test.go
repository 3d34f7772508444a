package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"tablero/internal/log"
)

func TestInitTracerDisabled(t *testing.T) {
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown failed: %v", err)
	}
}
