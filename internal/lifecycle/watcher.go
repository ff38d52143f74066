package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/notify"
)

// watchHandle bundles everything tracking one job's observation: the push
// subscription, the stop signal for the single pending timer, the abandoned
// flag, and the one-shot reconciled guard. retire releases the subscription
// and the timer together, whichever completion path fired.
type watchHandle struct {
	key        progressKey
	jobID      uuid.UUID
	sub        notify.Subscription
	reconciled atomic.Bool
	muted      atomic.Bool
	done       chan struct{}
	retireOnce sync.Once
}

func newWatchHandle(key progressKey) *watchHandle {
	return &watchHandle{
		key:  key,
		done: make(chan struct{}),
	}
}

// retire releases the watch's resources. Safe to call from any path, any
// number of times.
func (h *watchHandle) retire() {
	h.retireOnce.Do(func() {
		close(h.done)
		if h.sub != nil {
			_ = h.sub.Close()
		}
	})
}

// startWatch begins observing a submitted text/publish job.
//
// The order matters: one immediate ledger read first, because the job may
// have finished before any subscription could be established. Only if it is
// still unresolved do we subscribe and arm the safety timer. A failed
// subscription degrades silently to the timer path; that fallback is the
// reason the timer is mandatory.
func (c *Coordinator) startWatch(ctx context.Context, handle *watchHandle) {
	job, err := c.ledger.GetByID(ctx, handle.jobID)
	if err != nil {
		c.logger.Warn("initial ledger read failed, relying on push and timer",
			"job_id", handle.jobID,
			"error", err)
	} else if job.Status.Terminal() {
		c.reconcile(handle, job)
		return
	}

	sub, err := c.notifier.Subscribe(ctx, handle.jobID)
	if err != nil {
		c.logger.Error("failed to subscribe to job updates, falling back to timer",
			"job_id", handle.jobID,
			"error", err)
	} else {
		handle.sub = sub
	}

	c.wg.Add(1)
	go c.watch(handle)
}

// watch resolves the first of {push event, timer expiry} into one
// reconciliation. The reconciled-once guard makes the losing signal a no-op.
func (c *Coordinator) watch(handle *watchHandle) {
	defer c.wg.Done()

	timer := time.NewTimer(c.cfg.WatchTimeout)
	defer timer.Stop()

	var pushed <-chan notify.Event
	if handle.sub != nil {
		pushed = handle.sub.Events()
	}

	for {
		select {
		case event, ok := <-pushed:
			if !ok {
				// Channel lost; the timer fallback still covers us.
				pushed = nil
				continue
			}
			if event.JobID != handle.jobID || !event.Status.Terminal() {
				// Malformed or non-terminal events are ignored, not treated
				// as completion.
				continue
			}
			job, err := c.ledger.GetByID(context.Background(), handle.jobID)
			if err != nil {
				c.logger.Warn("ledger read after push event failed",
					"job_id", handle.jobID,
					"error", err)
				continue
			}
			if !job.Status.Terminal() {
				// Only the ledger's own terminal state counts.
				c.logger.Warn("push event reported terminal status the ledger does not confirm",
					"job_id", handle.jobID,
					"event_status", event.Status,
					"ledger_status", job.Status)
				continue
			}
			c.reconcile(handle, job)
			return

		case <-timer.C:
			job, err := c.ledger.GetByID(context.Background(), handle.jobID)
			if err == nil && job.Status.Terminal() {
				c.reconcile(handle, job)
				return
			}
			if err != nil {
				c.logger.Warn("safety-net ledger read failed",
					"job_id", handle.jobID,
					"error", err)
			}
			c.reconcileUnknown(handle)
			return

		case <-handle.done:
			return
		}
	}
}
