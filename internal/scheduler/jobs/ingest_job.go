package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/ingest"
)

const ingestScanTimeout = 10 * time.Second

type IngestJob struct {
	watcher *ingest.Watcher
	logger  *zap.Logger
}

func NewIngestJob(watcher *ingest.Watcher, logger *zap.Logger) *IngestJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestJob{watcher: watcher, logger: logger}
}

func (j *IngestJob) ScanPaymentLog() {
	if j == nil || j.watcher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestScanTimeout)
	defer cancel()

	if err := j.watcher.Scan(ctx); err != nil {
		j.logger.Warn("payment log scan failed", zap.Error(err))
	}
}
