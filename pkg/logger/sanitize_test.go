package logger

import (
	"io"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func discardLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(io.Discard),
		zap.DebugLevel,
	)
	return zap.New(core)
}

func fieldValue(t *testing.T, field zap.Field) interface{} {
	t.Helper()
	enc := zapcore.NewMapObjectEncoder()
	field.AddTo(enc)
	return enc.Fields[field.Key]
}

func TestSanitizeFieldsMasksSensitiveKeys(t *testing.T) {
	fields := SanitizeFields([]zap.Field{
		zap.String("password", "hunter2"),
		zap.String("db_password", "pg-secret"),
		zap.String("Authorization", "Bearer abc"),
		zap.String("username", "alice"),
	})

	for _, field := range fields[:3] {
		if got := fieldValue(t, field); got != "***" {
			t.Fatalf("field %q not masked: %v", field.Key, got)
		}
	}
	if got := fieldValue(t, fields[3]); got != "alice" {
		t.Fatalf("non-sensitive field altered: %v", got)
	}
}

func TestSanitizeFieldsMasksNestedValues(t *testing.T) {
	fields := SanitizeFields([]zap.Field{
		zap.Any("body", map[string]interface{}{
			"username": "alice",
			"password": "hunter2",
		}),
	})

	body, ok := fieldValue(t, fields[0]).(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected body type %T", fieldValue(t, fields[0]))
	}
	if body["password"] != "***" {
		t.Fatalf("nested password not masked: %v", body["password"])
	}
	if body["username"] != "alice" {
		t.Fatalf("nested username altered: %v", body["username"])
	}
}

func TestSystemLogStoreRecent(t *testing.T) {
	store := NewSystemLogStore(10)
	wrapped := WrapZapLogger(discardLogger(), store)

	wrapped.Info("session started")
	wrapped.Warn("slow client")
	wrapped.Error("database unavailable")

	all := store.Recent(0, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	errorsOnly := store.Recent(0, "error")
	if len(errorsOnly) != 1 || errorsOnly[0].Message != "database unavailable" {
		t.Fatalf("unexpected error entries %+v", errorsOnly)
	}

	limited := store.Recent(2, "")
	if len(limited) != 2 {
		t.Fatalf("expected 2 entries with limit, got %d", len(limited))
	}
}

func TestSystemLogStoreRingEvictsOldest(t *testing.T) {
	store := NewSystemLogStore(2)
	wrapped := WrapZapLogger(discardLogger(), store)

	wrapped.Info("first")
	wrapped.Info("second")
	wrapped.Info("third")

	entries := store.Recent(0, "")
	if len(entries) != 2 {
		t.Fatalf("expected capacity-bound 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Message == "first" {
			t.Fatal("oldest entry not evicted")
		}
	}
}
