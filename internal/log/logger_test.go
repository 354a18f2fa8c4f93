package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestNew_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentWorker, Format: "json", Output: &buf})

	l.WithOperation(OpSync).Info("snapshot refreshed", NewFields().WithSnapshotCounts(3, 10, 2).ToSlice()...)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldOperation] != OpSync {
		t.Errorf("operation = %v", rec[FieldOperation])
	}
	if rec[FieldMembers] != float64(3) {
		t.Errorf("members = %v", rec[FieldMembers])
	}
}

func TestFailure_WritesError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf})
	l.Failure(context.Background(), "read failed", errors.New("boom"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec[FieldError] != "boom" || rec["level"] != "ERROR" {
		t.Fatalf("record = %v", rec)
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
	l := Discard().WithComponent(ComponentHTTP)
	ctx := IntoContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext did not return the stored logger")
	}
}
