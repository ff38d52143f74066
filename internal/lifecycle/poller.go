package lifecycle

import (
	"context"
	"time"
)

// startPoll begins observing an image generation job. Image jobs have no push
// channel, so the same reconciliation contract is driven purely by
// fixed-interval ledger polls with a hard deadline.
func (c *Coordinator) startPoll(ctx context.Context, handle *watchHandle) {
	// The job may already be terminal before the first tick.
	job, err := c.ledger.GetByID(ctx, handle.jobID)
	if err == nil && job.Status.Terminal() {
		c.reconcile(handle, job)
		return
	}

	c.wg.Add(1)
	go c.poll(handle)
}

// poll ticks the ledger until a terminal result, the deadline, or retirement.
// Reconciling stops the ticker immediately, so no tick can fire after
// completion.
func (c *Coordinator) poll(handle *watchHandle) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.ImagePollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.cfg.ImagePollTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			job, err := c.ledger.GetByID(context.Background(), handle.jobID)
			if err != nil {
				c.logger.Warn("image job poll failed",
					"job_id", handle.jobID,
					"error", err)
				continue
			}
			if job.Status.Terminal() {
				c.reconcile(handle, job)
				return
			}

		case <-deadline.C:
			job, err := c.ledger.GetByID(context.Background(), handle.jobID)
			if err == nil && job.Status.Terminal() {
				c.reconcile(handle, job)
				return
			}
			c.reconcileUnknown(handle)
			return

		case <-handle.done:
			return
		}
	}
}
