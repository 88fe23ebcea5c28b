// Package upload implements the upload-and-poll attempt lifecycle: a guarded
// (client, file) selection, one submission per attempt, and a single
// deadline-bounded status poll loop whose results are discarded once a newer
// attempt supersedes it.
package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justapithecus/sheetdrop/backend"
	"github.com/justapithecus/sheetdrop/log"
	"github.com/justapithecus/sheetdrop/metrics"
	"github.com/justapithecus/sheetdrop/types"
)

// Default scheduling parameters.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultDeadline     = 300 * time.Second
)

// Backend is the remote processing service an attempt talks to.
type Backend interface {
	// Submit uploads file for clientID and returns the processing ID.
	Submit(ctx context.Context, clientID string, file types.FileDescriptor) (string, error)
	// Status fetches the current status of a processing job.
	Status(ctx context.Context, processingID string) (*types.StatusResponse, error)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	PollInterval time.Duration
	Deadline     time.Duration
	Logger       *log.Logger
	Metrics      *metrics.Collector
	// OnChange receives a snapshot after every state change. It is called
	// from the goroutine that made the change, without internal locks held,
	// and must not call back into the Controller.
	OnChange func(types.AttemptState)
}

// attempt holds the mutable state of the current attempt.
type attempt struct {
	phase        types.Phase
	progress     float64
	message      string
	processingID string
	dataInfo     *types.DataInfo
	startedAt    *time.Time
	endedAt      *time.Time
	err          error
}

// run tracks the goroutines serving one attempt token.
type run struct {
	token  uint64
	cancel context.CancelFunc
	// loopDone is closed when the poll loop exits; nil until polling starts.
	loopDone chan struct{}
	// stopped is set under Controller.mu when the poll loop exits.
	stopped bool
	// finished is closed once the attempt is terminal or superseded, or its
	// poll loop has stopped.
	finished chan struct{}
	once     sync.Once
}

func newRun(token uint64, cancel context.CancelFunc) *run {
	return &run{token: token, cancel: cancel, finished: make(chan struct{})}
}

func (r *run) finish() {
	r.once.Do(func() { close(r.finished) })
}

// Controller owns the selection and at most one live attempt.
// All methods are safe for concurrent use.
type Controller struct {
	backend Backend
	clients types.ClientList
	opts    Options
	logger  *log.Logger
	metrics *metrics.Collector

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	clientID string
	file     *types.FileDescriptor
	token    uint64
	state    attempt
	run      *run
}

// New creates a Controller in the Idle phase. clients is the list of
// selectable clients; SetClient rejects anything else. Polling goroutines
// derive from ctx and stop when it is canceled or Close is called.
func New(ctx context.Context, b Backend, clients types.ClientList, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	baseCtx, cancel := context.WithCancel(ctx)
	return &Controller{
		backend:    b,
		clients:    clients,
		opts:       opts,
		logger:     logger,
		metrics:    opts.Metrics,
		baseCtx:    baseCtx,
		cancelBase: cancel,
		state:      attempt{phase: types.PhaseIdle},
	}
}

// Snapshot returns the current selection and attempt state.
func (c *Controller) Snapshot() types.AttemptState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Err returns the error of the current attempt: nil unless it ended in
// Failed or TimedOut.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.err
}

// Wait blocks until the current attempt is terminal or superseded, or ctx
// is done. It returns immediately when no attempt is running.
func (c *Controller) Wait(ctx context.Context) (types.AttemptState, error) {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return c.Snapshot(), nil
	}
	select {
	case <-r.finished:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Close stops any running attempt and releases the controller's context.
// The last state stays readable through Snapshot.
func (c *Controller) Close() error {
	c.supersede(nil)
	c.cancelBase()
	return nil
}

// Submit starts a new attempt for the current selection. It supersedes any
// running attempt, uploads the file, and on acknowledgement starts the poll
// loop and returns nil. The outcome is observed through Snapshot, Wait or
// OnChange.
//
// A *ValidationError leaves the phase unchanged. A *SubmissionError means
// the attempt is Failed. ErrSuperseded means a newer operation took over
// while the upload was in flight.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	var verr *ValidationError
	switch {
	case c.file == nil:
		verr = &ValidationError{Message: MsgSelectFile}
	case c.clientID == "":
		verr = &ValidationError{Message: MsgSelectClient}
	}
	if verr != nil {
		c.state.message = verr.Message
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.IncValidationReject()
		c.notify(snap)
		return verr
	}
	c.mu.Unlock()

	token := c.supersede(nil)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := newRun(token, cancel)

	c.mu.Lock()
	// The selection is read under the current token so the attempt always
	// uploads what is selected now.
	if c.token != token || c.file == nil || c.clientID == "" {
		c.mu.Unlock()
		return ErrSuperseded
	}
	file := *c.file
	clientID := c.clientID
	now := time.Now()
	c.run = r
	c.state = attempt{
		phase:     types.PhaseSubmitting,
		progress:  ProgressSubmitting,
		message:   MsgUploading,
		startedAt: &now,
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.metrics.IncAttemptStarted()
	c.logger.Info("attempt submitting", map[string]any{
		"token":     token,
		"client_id": clientID,
		"file":      file.Name,
		"size_kb":   file.SizeKB(),
	})
	c.notify(snap)

	processingID, err := c.backend.Submit(subCtx, clientID, file)

	c.mu.Lock()
	if c.token != token {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		subErr := &SubmissionError{Message: submissionMessage(err), Err: err}
		ended := time.Now()
		c.state.phase = types.PhaseFailed
		c.state.progress = ProgressFailed
		c.state.message = subErr.Message
		c.state.endedAt = &ended
		c.state.err = subErr
		snap := c.snapshotLocked()
		r.finish()
		c.mu.Unlock()

		c.metrics.IncSubmitFailure()
		c.metrics.IncOutcome(string(types.PhaseFailed))
		c.logger.Warn("submission failed", map[string]any{
			"token": token,
			"error": err.Error(),
		})
		c.notify(snap)
		return subErr
	}

	loopCtx, loopCancel := context.WithCancel(c.baseCtx)
	r.cancel = loopCancel
	r.loopDone = make(chan struct{})
	c.state.phase = types.PhasePolling
	c.state.progress = ProgressAccepted
	c.state.message = MsgUploaded
	c.state.processingID = processingID
	snap = c.snapshotLocked()
	go c.poll(loopCtx, r, processingID)
	c.mu.Unlock()

	c.logger.Info("attempt accepted", map[string]any{
		"token":         token,
		"processing_id": processingID,
	})
	c.notify(snap)
	return nil
}

// submissionMessage picks the user-facing text for a failed submission.
func submissionMessage(err error) string {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Message != "" {
			return statusErr.Message
		}
		return MsgSubmitRejected
	}
	return MsgUnreachable
}

// supersede invalidates the current attempt token, cancels the attempt's
// in-flight work and waits for its poll loop to exit. It returns the new
// token. mutate, when non-nil, runs under c.mu right after the token bump so
// a selection change and the invalidation it causes are one step. Callers
// must not hold c.mu.
func (c *Controller) supersede(mutate func()) uint64 {
	c.mu.Lock()
	c.token++
	token := c.token
	r := c.run
	c.run = nil
	live := r != nil && !c.state.phase.IsTerminal()
	if mutate != nil {
		mutate()
	}
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	if r != nil {
		cancel = r.cancel
		done = r.loopDone
	}
	c.mu.Unlock()

	if r == nil {
		return token
	}
	cancel()
	if done != nil {
		<-done
	}
	r.finish()
	if live {
		c.metrics.IncAttemptSuperseded()
		c.logger.Debug("attempt superseded", map[string]any{
			"token":      r.token,
			"next_token": token,
		})
	}
	return token
}

// resetLocked returns the attempt to Idle.
func (c *Controller) resetLocked() {
	c.state = attempt{phase: types.PhaseIdle}
}

func (c *Controller) snapshotLocked() types.AttemptState {
	s := types.AttemptState{
		ClientID:     c.clientID,
		Token:        c.token,
		ProcessingID: c.state.processingID,
		Phase:        c.state.phase,
		Progress:     c.state.progress,
		Message:      c.state.message,
		Polling:      c.pollingLocked(),
		StartedAt:    c.state.startedAt,
		EndedAt:      c.state.endedAt,
	}
	if c.file != nil {
		s.FileName = c.file.Name
	}
	if c.state.dataInfo != nil {
		info := *c.state.dataInfo
		s.DataInfo = &info
	}
	return s
}

// pollingLocked reports whether a poll loop is still serving the attempt.
func (c *Controller) pollingLocked() bool {
	return c.state.phase == types.PhasePolling &&
		c.run != nil && c.run.loopDone != nil && !c.run.stopped
}

func (c *Controller) notify(s types.AttemptState) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}
