package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/approval"
	"github.com/SoumitraRai/BiFrost/internal/metrics"
	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/service"
)

const maxScanChunk = 4 << 20 // 4 MiB per scan keeps one pass bounded

// Watcher tails the interception engine's payment_traffic.log and feeds
// request entries into the approval queue, and, when a capture session is
// configured, into the traffic log store. It replaces the desktop UI's
// 100ms file polling.
type Watcher struct {
	path    string
	queue   *approval.Queue
	traffic *TrafficSink
	logger  *zap.Logger

	mu       sync.Mutex
	offset   int64
	leftover string
}

// TrafficSink is the optional database leg of ingest. SessionID designates
// the proxy session ingested rows are attributed to; zero disables the leg
// (the engine normally reports its own rows over the REST API instead).
type TrafficSink struct {
	Service   *service.TrafficService
	SessionID int64
}

func NewWatcher(path string, queue *approval.Queue, traffic *TrafficSink, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:    path,
		queue:   queue,
		traffic: traffic,
		logger:  logger,
	}
}

// Scan reads whatever the engine appended since the previous pass. A file
// smaller than the checkpoint means rotation or truncation; the checkpoint
// resets and the new content is read from the start.
func (w *Watcher) Scan(ctx context.Context) error {
	if w == nil || w.path == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if info.Size() < w.offset {
		w.logger.Info("payment log truncated, restarting from top",
			zap.Int64("old_offset", w.offset),
			zap.Int64("size", info.Size()),
		)
		w.offset = 0
		w.leftover = ""
	}
	if info.Size() == w.offset {
		return nil
	}

	chunk, err := w.readChunk()
	if err != nil {
		return err
	}
	if chunk == "" {
		return nil
	}

	data := w.leftover + chunk
	entries, consumed := ParseEntries(data)
	w.leftover = data[consumed:]

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.handle(ctx, entry)
	}
	return nil
}

func (w *Watcher) readChunk() (string, error) {
	// #nosec G304 -- path comes from operator configuration.
	file, err := os.Open(w.path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Seek(w.offset, io.SeekStart); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxScanChunk))
	if err != nil {
		return "", err
	}

	w.offset += int64(len(raw))
	return string(raw), nil
}

func (w *Watcher) handle(ctx context.Context, entry Entry) {
	metrics.IngestedLines.Inc()

	if entry.Kind != EntryRequest {
		return
	}

	if w.queue != nil {
		w.queue.Register(approval.Flow{
			URL:        entry.URL,
			Method:     entry.Method,
			ReceivedAt: entry.Timestamp,
		})
	}

	if w.traffic != nil && w.traffic.Service != nil && w.traffic.SessionID > 0 {
		_, err := w.traffic.Service.AddLog(ctx, &model.TrafficLog{
			SessionID:        w.traffic.SessionID,
			Timestamp:        entry.Timestamp,
			URL:              entry.URL,
			Method:           entry.Method,
			StatusCode:       entry.StatusCode,
			ContentType:      entry.ContentType,
			Size:             entry.Size,
			IsPaymentRelated: true,
		})
		if err != nil {
			w.logger.Warn("record ingested payment log failed",
				zap.String("url", entry.URL),
				zap.Error(err),
			)
		}
	}
}
