package types

// Phase is the lifecycle phase of one upload attempt.
type Phase string

// Phase constants.
const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
	PhaseCompleted  Phase = "completed"
	PhaseWarning    Phase = "warning"
	PhaseFailed     Phase = "failed"
	PhaseTimedOut   Phase = "timed_out"
)

// IsTerminal returns true for phases from which no further polling occurs.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseWarning, PhaseFailed, PhaseTimedOut:
		return true
	default:
		return false
	}
}

// StatusTag is the phase tag the backend reports on each status poll.
type StatusTag string

// Status tags reported by the backend.
const (
	StatusProcessing StatusTag = "processing"
	StatusCompleted  StatusTag = "completed"
	StatusFailed     StatusTag = "failed"
	StatusWarning    StatusTag = "warning"
)

// DataInfo is the structured detail the backend reports once the CSV is parsed.
type DataInfo struct {
	Rows       int     `json:"rows" yaml:"rows" msgpack:"rows"`
	Columns    int     `json:"columns" yaml:"columns" msgpack:"columns"`
	FileSizeMB float64 `json:"file_size_mb" yaml:"file_size_mb" msgpack:"file_size_mb"`
}

// StatusResponse is the body of GET /api/status/{processing_id}.
type StatusResponse struct {
	Status  StatusTag `json:"status"`
	Message string    `json:"message"`
	// Progress is the backend fraction in [0,1]; nil when not reported.
	Progress *float64  `json:"progress,omitempty"`
	DataInfo *DataInfo `json:"data_info,omitempty"`
}

// SubmitResponse is the success body of POST /api/upload.
type SubmitResponse struct {
	ProcessingID string `json:"processing_id"`
	Message      string `json:"message,omitempty"`
	Filename     string `json:"filename,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
}

// ClientsResponse is the body of GET /api/clients.
type ClientsResponse struct {
	Status  string     `json:"status,omitempty"`
	Clients ClientList `json:"clients"`
}
