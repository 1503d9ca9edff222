package logger_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gunvolt24/gomarketplace_cart/pkg/ctxmeta"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/logger"
)

func TestZapLogger_AddsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.NewFromZap(zap.New(core))

	ctx := ctxmeta.WithRequestID(context.Background(), "req-1")
	ctx = ctxmeta.WithSource(ctx, ctxmeta.SourceHTTP)

	l.Infof(ctx, "cart mutated op=%s", "add")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Message != "cart mutated op=add" {
		t.Fatalf("unexpected message %q", e.Message)
	}
	fields := e.ContextMap()
	if fields["request_id"] != "req-1" || fields["source"] != "http" {
		t.Fatalf("missing ctx fields: %v", fields)
	}
}

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.NewFromZap(zap.New(core))
	ctx := context.Background()

	l.Infof(ctx, "i")
	l.Warnf(ctx, "w")
	l.Errorf(ctx, "e")

	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	got := logs.All()
	if len(got) != len(want) {
		t.Fatalf("want %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Level != want[i] {
			t.Fatalf("entry %d: want level %v, got %v", i, want[i], got[i].Level)
		}
		if len(got[i].Context) != 0 {
			t.Fatalf("entry %d: empty ctx must not add fields, got %v", i, got[i].Context)
		}
	}
}
