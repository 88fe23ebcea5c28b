package upload

import (
	"github.com/justapithecus/sheetdrop/types"
)

// SetClient selects a client. Unknown IDs are ignored and reported with
// false. A valid selection supersedes any running attempt and returns the
// controller to Idle; the candidate file is kept.
func (c *Controller) SetClient(id string) bool {
	if !c.clients.Contains(id) {
		c.logger.Debug("unknown client ignored", map[string]any{"client_id": id})
		return false
	}
	c.supersede(func() {
		c.clientID = id
		c.resetLocked()
	})

	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// SetCandidateFile selects the file to upload. A file that is not CSV is
// rejected with a *ValidationError and leaves the selection and phase
// unchanged. A valid file supersedes any running attempt and returns the
// controller to Idle.
func (c *Controller) SetCandidateFile(fd types.FileDescriptor) error {
	if !fd.IsCSV() {
		c.mu.Lock()
		c.state.message = MsgInvalidFile
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.metrics.IncValidationReject()
		c.logger.Debug("candidate file rejected", map[string]any{
			"file":       fd.Name,
			"media_type": fd.MediaType,
		})
		c.notify(snap)
		return &ValidationError{Message: MsgInvalidFile}
	}
	c.supersede(func() {
		c.file = &fd
		c.resetLocked()
	})

	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// ClearCandidateFile drops the candidate file, supersedes any running
// attempt and returns the controller to Idle.
func (c *Controller) ClearCandidateFile() {
	c.supersede(func() {
		c.file = nil
		c.resetLocked()
	})

	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}
