// Package adapter defines the outcome notification boundary.
//
// Adapters publish attempt completion notifications to downstream systems.
// The CLI owns adapter lifecycle; users provide configuration only.
// Delivery retries live inside adapters; an upload is never retried.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/sheetdrop/types"
)

// EventTypeAttemptCompleted is the event_type of every published event.
const EventTypeAttemptCompleted = "attempt_completed"

// AttemptCompletedEvent is the payload published when an attempt reaches
// a terminal phase.
type AttemptCompletedEvent struct {
	ContractVersion string          `json:"contract_version" msgpack:"contract_version"`
	EventType       string          `json:"event_type" msgpack:"event_type"` // always "attempt_completed"
	SessionID       string          `json:"session_id" msgpack:"session_id"`
	Backend         string          `json:"backend" msgpack:"backend"`
	ClientID        string          `json:"client_id" msgpack:"client_id"`
	FileName        string          `json:"file_name" msgpack:"file_name"`
	ProcessingID    string          `json:"processing_id,omitempty" msgpack:"processing_id,omitempty"`
	Outcome         string          `json:"outcome" msgpack:"outcome"` // completed, warning, failed, timed_out
	Message         string          `json:"message" msgpack:"message"`
	Progress        float64         `json:"progress" msgpack:"progress"`
	DataInfo        *types.DataInfo `json:"data_info,omitempty" msgpack:"data_info,omitempty"`
	Timestamp       string          `json:"timestamp" msgpack:"timestamp"` // ISO 8601
	DurationMs      int64           `json:"duration_ms" msgpack:"duration_ms"`
}

// NewAttemptCompletedEvent builds the event for a terminal attempt snapshot.
func NewAttemptCompletedEvent(meta *types.SessionMeta, s types.AttemptState) *AttemptCompletedEvent {
	ts := time.Now().UTC()
	if s.EndedAt != nil {
		ts = s.EndedAt.UTC()
	}
	event := &AttemptCompletedEvent{
		ContractVersion: types.EventContractVersion,
		EventType:       EventTypeAttemptCompleted,
		ClientID:        s.ClientID,
		FileName:        s.FileName,
		ProcessingID:    s.ProcessingID,
		Outcome:         string(s.Phase),
		Message:         s.Message,
		Progress:        s.Progress,
		DataInfo:        s.DataInfo,
		Timestamp:       ts.Format(time.RFC3339),
		DurationMs:      s.Duration().Milliseconds(),
	}
	if meta != nil {
		event.SessionID = meta.SessionID
		event.Backend = meta.BaseURL
	}
	return event
}

// Codec selects the wire encoding of published events.
type Codec string

// Supported codecs.
const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// ParseCodec validates a codec name. Empty selects JSON.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case "", CodecJSON:
		return CodecJSON, nil
	case CodecMsgpack:
		return CodecMsgpack, nil
	default:
		return "", fmt.Errorf("unknown codec %q (want json or msgpack)", name)
	}
}

// ContentType returns the HTTP media type for the codec.
func (c Codec) ContentType() string {
	if c == CodecMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Marshal encodes the event with the codec.
func (c Codec) Marshal(event *AttemptCompletedEvent) ([]byte, error) {
	if c == CodecMsgpack {
		return msgpack.Marshal(event)
	}
	return json.Marshal(event)
}

// Adapter publishes attempt completion events to a downstream system.
type Adapter interface {
	// Publish sends an attempt completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AttemptCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
