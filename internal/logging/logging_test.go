package logging

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Fatalf("expected req-123, got %q", got)
	}
}

func TestRequestID_Missing(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger, got nil")
	}
}

func TestWithLogger_RoundTrip(t *testing.T) {
	logger := New("debug", "text")
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger back")
	}
}

func TestL_IncludesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-456")
	if L(ctx) == nil {
		t.Fatal("expected logger, got nil")
	}
}

func TestNew_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus"} {
		if New(lvl, "json") == nil {
			t.Fatalf("expected logger for level %q", lvl)
		}
	}
}
