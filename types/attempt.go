package types

import "time"

// AttemptState is a read-only snapshot of the controller's selection and
// current attempt. Snapshots are values; mutating one has no effect on the
// controller.
type AttemptState struct {
	ClientID string `json:"client_id" yaml:"client_id"`
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	// Token is the attempt token; zero before the first attempt.
	Token        uint64    `json:"token" yaml:"token"`
	ProcessingID string    `json:"processing_id,omitempty" yaml:"processing_id,omitempty"`
	Phase        Phase     `json:"phase" yaml:"phase"`
	Progress     float64   `json:"progress" yaml:"progress"`
	Message      string    `json:"message" yaml:"message"`
	DataInfo     *DataInfo `json:"data_info,omitempty" yaml:"data_info,omitempty"`
	// Polling is true while the poll loop for this attempt is active.
	Polling   bool       `json:"polling" yaml:"polling"`
	StartedAt *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
}

// Duration returns the elapsed time of a finished attempt, or zero.
func (s AttemptState) Duration() time.Duration {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(*s.StartedAt)
}
