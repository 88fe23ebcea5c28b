// Package metrics provides per-session counters for upload attempts.
//
// The Collector accumulates counters for one CLI invocation. It is a leaf
// package with no internal dependencies; phases are recorded by their
// string value.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Attempt lifecycle
	AttemptsStarted    int64            `json:"attempts_started" yaml:"attempts_started"`
	AttemptsSuperseded int64            `json:"attempts_superseded" yaml:"attempts_superseded"`
	OutcomesByPhase    map[string]int64 `json:"outcomes_by_phase" yaml:"outcomes_by_phase"`

	// Selection
	ValidationRejects int64 `json:"validation_rejects" yaml:"validation_rejects"`

	// Backend traffic
	SubmitFailures int64 `json:"submit_failures" yaml:"submit_failures"`
	PollsIssued    int64 `json:"polls_issued" yaml:"polls_issued"`
	PollHiccups    int64 `json:"poll_hiccups" yaml:"poll_hiccups"`

	// Dimensions (informational, set at construction)
	Backend   string `json:"backend" yaml:"backend"`
	SessionID string `json:"session_id" yaml:"session_id"`
}

// Collector accumulates counters during one session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	attemptsStarted    int64
	attemptsSuperseded int64
	outcomesByPhase    map[string]int64

	validationRejects int64

	submitFailures int64
	pollsIssued    int64
	pollHiccups    int64

	backend   string
	sessionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(backend, sessionID string) *Collector {
	return &Collector{
		outcomesByPhase: make(map[string]int64),
		backend:         backend,
		sessionID:       sessionID,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Attempt lifecycle ---

// IncAttemptStarted records a submission entering Submitting.
func (c *Collector) IncAttemptStarted() {
	if c == nil {
		return
	}
	c.inc(&c.attemptsStarted)
}

// IncAttemptSuperseded records an unfinished attempt invalidated by a new
// selection or a new submission.
func (c *Collector) IncAttemptSuperseded() {
	if c == nil {
		return
	}
	c.inc(&c.attemptsSuperseded)
}

// IncOutcome records an attempt reaching the given terminal phase.
func (c *Collector) IncOutcome(phase string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.outcomesByPhase[phase]++
	c.mu.Unlock()
}

// --- Selection ---

// IncValidationReject records a rejected file or an incomplete submission.
func (c *Collector) IncValidationReject() {
	if c == nil {
		return
	}
	c.inc(&c.validationRejects)
}

// --- Backend traffic ---

// IncSubmitFailure records a rejected or unreachable submission.
func (c *Collector) IncSubmitFailure() {
	if c == nil {
		return
	}
	c.inc(&c.submitFailures)
}

// IncPollIssued records one status request.
func (c *Collector) IncPollIssued() {
	if c == nil {
		return
	}
	c.inc(&c.pollsIssued)
}

// IncPollHiccup records a status request that failed or returned non-2xx
// and was skipped.
func (c *Collector) IncPollHiccup() {
	if c == nil {
		return
	}
	c.inc(&c.pollHiccups)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	outcomes := make(map[string]int64, len(c.outcomesByPhase))
	for k, v := range c.outcomesByPhase {
		outcomes[k] = v
	}

	return Snapshot{
		AttemptsStarted:    c.attemptsStarted,
		AttemptsSuperseded: c.attemptsSuperseded,
		OutcomesByPhase:    outcomes,

		ValidationRejects: c.validationRejects,

		SubmitFailures: c.submitFailures,
		PollsIssued:    c.pollsIssued,
		PollHiccups:    c.pollHiccups,

		Backend:   c.backend,
		SessionID: c.sessionID,
	}
}
