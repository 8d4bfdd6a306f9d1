package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	specIngestScan    = "*/2 * * * * *"
	specApprovalSweep = "*/30 * * * * *"
	specSessionGauge  = "*/30 * * * * *"
)

type IngestTask interface {
	ScanPaymentLog()
}

type ApprovalTask interface {
	SweepQueue()
}

type SessionTask interface {
	RefreshActiveGauge()
}

type Deps struct {
	IngestJob   IngestTask
	ApprovalJob ApprovalTask
	SessionJob  SessionTask
}

func NewScheduler(deps Deps, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.IngestJob != nil {
		addFunc(c, specIngestScan, "ingest.scan_payment_log", logger, deps.IngestJob.ScanPaymentLog)
	}
	if deps.ApprovalJob != nil {
		addFunc(c, specApprovalSweep, "approval.sweep_queue", logger, deps.ApprovalJob.SweepQueue)
	}
	if deps.SessionJob != nil {
		addFunc(c, specSessionGauge, "session.refresh_gauge", logger, deps.SessionJob.RefreshActiveGauge)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
