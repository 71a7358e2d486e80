package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("registry", "observers")).Error(context.Background(), "persist failed",
		Err(errors.New("disk full")),
		Int("records", 3),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if got["msg"] != "persist failed" {
		t.Fatalf("msg = %v, want %q", got["msg"], "persist failed")
	}
	if got["registry"] != "observers" {
		t.Fatalf("registry = %v, want observers", got["registry"])
	}
	if got["error"] != "disk full" {
		t.Fatalf("error = %v, want disk full", got["error"])
	}
	if got["records"] != float64(3) {
		t.Fatalf("records = %v, want 3", got["records"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn message missing from output %q", buf.String())
	}
}

func TestErrNil(t *testing.T) {
	if f := Err(nil); f.Key != "error" || f.Value != "" {
		t.Fatalf("Err(nil) = %#v", f)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("expected generated request id")
	}
	if got := RequestIDFromContext(ctx); got != id {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, id)
	}

	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatalf("EnsureRequestID should keep an existing id")
	}

	ctx3 := ContextWithRequestID(context.Background(), "abc")
	if _, id3 := EnsureRequestID(ctx3); id3 != "abc" {
		t.Fatalf("explicit id not preserved, got %q", id3)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("ContextWithLogger(nil) should store a noop logger")
	}
}
