package upload

import (
	"context"
	"errors"
	"time"

	"github.com/justapithecus/sheetdrop/types"
)

// poll is the single status loop of one attempt. It owns both the poll
// timer and the deadline timer and stops them on every exit path. A poll is
// never issued while the previous one is in flight.
func (c *Controller) poll(ctx context.Context, r *run, processingID string) {
	defer func() {
		c.mu.Lock()
		r.stopped = true
		c.mu.Unlock()
		r.finish()
		close(r.loopDone)
	}()

	deadlineAt := time.Now().Add(c.opts.Deadline)
	deadline := time.NewTimer(c.opts.Deadline)
	defer deadline.Stop()
	next := time.NewTimer(c.opts.PollInterval)
	defer next.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			c.expire(r, processingID)
			return
		case <-next.C:
		}

		c.metrics.IncPollIssued()
		reqCtx, cancel := context.WithDeadline(ctx, deadlineAt)
		resp, err := c.backend.Status(reqCtx, processingID)
		cancel()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.metrics.IncPollHiccup()
				c.logger.Debug("status poll skipped", map[string]any{
					"token":         r.token,
					"processing_id": processingID,
					"error":         err.Error(),
				})
			}
		} else if c.apply(r, resp) {
			return
		}
		next.Reset(c.opts.PollInterval)
	}
}

// apply folds one status response into the attempt. It reports whether the
// loop should stop.
func (c *Controller) apply(r *run, resp *types.StatusResponse) bool {
	c.mu.Lock()
	if c.token != r.token || c.state.phase != types.PhasePolling {
		c.mu.Unlock()
		return true
	}
	t := classify(c.state.progress, resp)
	if !t.changed {
		c.mu.Unlock()
		c.logger.Debug("unknown status ignored", map[string]any{
			"token":  r.token,
			"status": string(resp.Status),
		})
		return false
	}

	c.state.phase = t.phase
	c.state.progress = t.progress
	c.state.message = t.message
	if t.dataInfo != nil {
		c.state.dataInfo = t.dataInfo
	}
	if t.terminal {
		ended := time.Now()
		c.state.endedAt = &ended
		if t.phase == types.PhaseFailed {
			c.state.err = &ProcessingError{
				ProcessingID: c.state.processingID,
				Message:      resp.Message,
			}
		}
		r.finish()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if t.terminal {
		c.metrics.IncOutcome(string(t.phase))
		c.logger.Info("attempt finished", map[string]any{
			"token":         r.token,
			"processing_id": snap.ProcessingID,
			"phase":         string(t.phase),
			"duration_ms":   snap.Duration().Milliseconds(),
		})
	}
	c.notify(snap)
	return t.terminal
}

// expire moves a still-polling attempt to TimedOut. Progress is kept.
func (c *Controller) expire(r *run, processingID string) {
	c.mu.Lock()
	if c.token != r.token || c.state.phase != types.PhasePolling {
		c.mu.Unlock()
		return
	}
	ended := time.Now()
	c.state.phase = types.PhaseTimedOut
	c.state.message = MsgTimeout
	c.state.endedAt = &ended
	c.state.err = &TimeoutError{ProcessingID: processingID, After: c.opts.Deadline}
	r.finish()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.metrics.IncOutcome(string(types.PhaseTimedOut))
	c.logger.Warn("attempt timed out", map[string]any{
		"token":         r.token,
		"processing_id": processingID,
		"deadline":      c.opts.Deadline.String(),
	})
	c.notify(snap)
}
