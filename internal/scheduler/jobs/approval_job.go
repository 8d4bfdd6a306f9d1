package jobs

import (
	"time"

	"github.com/SoumitraRai/BiFrost/internal/approval"
)

type ApprovalJob struct {
	queue *approval.Queue
}

func NewApprovalJob(queue *approval.Queue) *ApprovalJob {
	return &ApprovalJob{queue: queue}
}

func (j *ApprovalJob) SweepQueue() {
	if j == nil || j.queue == nil {
		return
	}
	j.queue.Sweep(time.Now().UTC())
}
