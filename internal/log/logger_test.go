package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: unexpected error state: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentLoader, Handler: slog.NewTextHandler(&buf, nil)})
	l.Info("hello", FieldRows, 3)
	out := buf.String()
	if !strings.Contains(out, "component=loader") || !strings.Contains(out, "rows=3") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLogSnapshotLoadedSyntheticIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})
	NewStructuredLogger(l).LogSnapshotLoaded(context.Background(), "excel:x", "v1", 200, true)
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "synthetic=true") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestWithFilterOmitsEmpty(t *testing.T) {
	f := NewFields().WithFilter("IT", "", "2024-01-01", "")
	if len(f) != 2 || f[FieldArea] != "IT" || f[FieldFrom] != "2024-01-01" {
		t.Fatalf("unexpected fields: %v", f)
	}
}

func TestLogErrorAcceptsNilFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})
	NewStructuredLogger(l).LogError(context.Background(), "boom", errors.New("bad sheet"), ComponentLoader, OpLoad, nil)
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, `error="bad sheet"`) || !strings.Contains(out, "operation=load") {
		t.Fatalf("unexpected output: %s", out)
	}
}
