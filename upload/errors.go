package upload

import (
	"errors"
	"fmt"
	"time"
)

// Messages surfaced through AttemptState.Message.
const (
	MsgInvalidFile    = "Please select a valid CSV file"
	MsgSelectFile     = "Please select a file first"
	MsgSelectClient   = "Please select a client first"
	MsgUploading      = "Uploading CSV file..."
	MsgUploaded       = "File uploaded! Processing CSV and updating sheets..."
	MsgSubmitRejected = "Upload failed. Please try again."
	MsgUnreachable    = "Upload failed. Please check if the backend is running."
	MsgTimeout        = "Processing timeout. Please check the backend logs."

	// ErrorMarker prefixes messages of attempts the backend reported as failed.
	ErrorMarker = "Error: "
)

// ErrSuperseded is returned by Submit when a newer selection or submission
// invalidated the attempt before it was acknowledged.
var ErrSuperseded = errors.New("attempt superseded")

// ValidationError reports a bad file type or an incomplete selection.
// It never changes the attempt phase.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// SubmissionError reports a rejected or unreachable submission.
// The attempt is Failed; a fresh Submit retries.
type SubmissionError struct {
	// Message is the text shown to the user.
	Message string
	// Err is the underlying backend error.
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %s: %v", e.Message, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ProcessingError reports that the backend marked the attempt as failed
// while it was being polled.
type ProcessingError struct {
	ProcessingID string
	Message      string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s failed: %s", e.ProcessingID, e.Message)
}

// TimeoutError reports that no terminal status arrived before the deadline.
type TimeoutError struct {
	ProcessingID string
	After        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("processing %s did not finish within %s", e.ProcessingID, e.After)
}
