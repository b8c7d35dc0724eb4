package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"intake/internal/services"
)

func TestPrettyHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("item captured",
		String(FieldComponent, "ops"),
		String(FieldItemID, "abc-123"),
		Int("attempts", 2),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO ops: item captured") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "item_id=abc-123") {
		t.Fatalf("missing item_id attr: %q", line)
	}
	if !strings.Contains(line, "attempts=2") {
		t.Fatalf("missing attempts attr: %q", line)
	}
}

func TestPrettyHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Warn("enqueue rejected", String("reason", "already processing"))
	if !strings.Contains(buf.String(), `reason="already processing"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestJSONHandlerShape(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Error("lease expired", Int64(FieldJobID, 7))

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["level"] != "error" {
		t.Fatalf("unexpected level %v", doc["level"])
	}
	if doc["msg"] != "lease expired" {
		t.Fatalf("unexpected msg %v", doc["msg"])
	}
	if _, ok := doc["ts"]; !ok {
		t.Fatalf("missing ts field: %v", doc)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	base := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := services.WithItemID(context.Background(), "item-9")
	ctx = services.WithJobID(ctx, 42)
	ctx = services.WithRunID(ctx, "run-1")

	WithContext(ctx, base).Info("processing")
	line := buf.String()
	for _, want := range []string{"item_id=item-9", "job_id=42", "run_id=run-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should report disabled")
	}
}
