package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	l := slog.New(h)
	return NewSlogLogger(l), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "otp issued", "user_id", 7)
	log.Info(ctx, "order placed", "transaction_id", "TXN-9-20250115-0042")
	log.Warn(ctx, "order signing unavailable, storing unsigned order", "attempt", 3)
	log.Error(ctx, "db error", "op", "users.Create")

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		attr  string
	}{
		{"DEBUG", `"otp issued"`, "user_id=7"},
		{"INFO", `"order placed"`, "transaction_id=TXN-9-20250115-0042"},
		{"WARN", `"order signing unavailable, storing unsigned order"`, "attempt=3"},
		{"ERROR", `"db error"`, "op=users.Create"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%s in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.attr) {
			t.Fatalf("expected attribute %s in output:\n%s", tc.attr, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("module", "OrderService", "seller_id", 12)
	log2.Info(ctx, "stock decremented", "product_id", 3)

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		`msg="stock decremented"`,
		"module=OrderService",
		"seller_id=12",
		"product_id=3",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}
