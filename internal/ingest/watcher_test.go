package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SoumitraRai/BiFrost/internal/approval"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestScanRegistersApprovals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	writeLog(t, path, sampleRequest)

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)

	if err := w.Scan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	pending := queue.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending flow, got %d", len(pending))
	}
	if pending[0].URL != "https://pay.example.com/v1/charge" {
		t.Fatalf("unexpected flow %+v", pending[0])
	}
}

func TestScanIgnoresResponses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	writeLog(t, path, sampleResponse)

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)

	if err := w.Scan(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(queue.Pending()) != 0 {
		t.Fatal("response entries must not create approval flows")
	}
}

func TestScanResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	writeLog(t, path, sampleRequest)

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)
	ctx := context.Background()

	if err := w.Scan(ctx); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if err := w.Scan(ctx); err != nil {
		t.Fatalf("idle scan failed: %v", err)
	}
	if len(queue.Pending()) != 1 {
		t.Fatalf("idle scan must not duplicate flows, got %d", len(queue.Pending()))
	}

	appendLog(t, path, sampleResponse+sampleRequest)
	if err := w.Scan(ctx); err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(queue.Pending()) != 2 {
		t.Fatalf("expected 2 pending flows, got %d", len(queue.Pending()))
	}
}

func TestScanHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	writeLog(t, path, sampleRequest+sampleResponse)

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)
	ctx := context.Background()

	if err := w.Scan(ctx); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	// Log rotation: the file restarts smaller than the checkpoint.
	writeLog(t, path, sampleRequest)
	if err := w.Scan(ctx); err != nil {
		t.Fatalf("post-rotation scan failed: %v", err)
	}
	if len(queue.Pending()) != 2 {
		t.Fatalf("expected 2 pending flows after rotation, got %d", len(queue.Pending()))
	}
}

func TestScanMissingFileIsQuiet(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent.log"), approval.NewQueue(nil, nil), nil, nil)
	if err := w.Scan(context.Background()); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestScanRecoversAfterTornWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	torn := "2025-03-14 10:22:33,500 - INFO: [PAYMENT REQUEST]\n{\n    \"method\": \"POST\",\n"
	writeLog(t, path, torn+sampleRequest)

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)
	ctx := context.Background()

	if err := w.Scan(ctx); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(queue.Pending()) != 1 {
		t.Fatalf("expected the entry after the torn write, got %d", len(queue.Pending()))
	}
	if w.leftover != "" {
		t.Fatalf("torn prefix must not linger in the carry buffer: %q", w.leftover)
	}

	// Later appends must still be ingested.
	appendLog(t, path, sampleRequest)
	if err := w.Scan(ctx); err != nil {
		t.Fatalf("follow-up scan failed: %v", err)
	}
	if len(queue.Pending()) != 2 {
		t.Fatalf("expected 2 pending flows, got %d", len(queue.Pending()))
	}
}

func TestScanCarriesPartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment_traffic.log")
	half := len(sampleRequest) / 2
	writeLog(t, path, sampleRequest[:half])

	queue := approval.NewQueue(nil, nil)
	w := NewWatcher(path, queue, nil, nil)
	ctx := context.Background()

	if err := w.Scan(ctx); err != nil {
		t.Fatalf("partial scan failed: %v", err)
	}
	if len(queue.Pending()) != 0 {
		t.Fatal("half-written entry must not be ingested")
	}

	appendLog(t, path, sampleRequest[half:])
	if err := w.Scan(ctx); err != nil {
		t.Fatalf("completing scan failed: %v", err)
	}
	if len(queue.Pending()) != 1 {
		t.Fatalf("expected 1 pending flow once complete, got %d", len(queue.Pending()))
	}
}
