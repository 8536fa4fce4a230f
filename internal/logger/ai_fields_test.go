package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  gemini  ", "gemini-2.5-flash")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if fields[1].Key != FieldModel || fields[1].String != "gemini-2.5-flash" {
		t.Fatalf("unexpected model field: %+v", fields[1])
	}

	if got := CommonFields("", "  "); len(got) != 0 {
		t.Fatalf("expected no fields, got %d", len(got))
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("scored")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" || ctx[FieldModel] != "model-x" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	// Logging through the nil fallback must not panic.
	WithCommonFields(nil, "gemini", "model-x").Info("another log")
}

func TestPreview(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	text := strings.Repeat("héllo ", 3)
	zap.New(core).Debug("prompt", Preview("prompt", text, 4)...)

	ctx := observed.All()[0].ContextMap()
	if ctx["prompt_length"] != int64(18) {
		t.Fatalf("expected rune length 18, got %v", ctx["prompt_length"])
	}
	if ctx["prompt_preview"] != "héll..." {
		t.Fatalf("unexpected preview %q", ctx["prompt_preview"])
	}
}
