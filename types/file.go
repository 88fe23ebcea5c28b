package types

import (
	"io"
	"strings"
)

// CSVMediaType is the MIME type that marks a candidate file as CSV.
const CSVMediaType = "text/csv"

// CSVSuffix is the case-sensitive file name suffix that marks a candidate file as CSV.
const CSVSuffix = ".csv"

// FileDescriptor describes a candidate file chosen by the user.
// The content is opened lazily at submission time.
type FileDescriptor struct {
	// Name is the base file name sent to the backend.
	Name string `json:"name"`
	// Size is the size in bytes, or -1 when unknown.
	Size int64 `json:"size"`
	// MediaType is the declared media type (may be empty).
	MediaType string `json:"media_type"`
	// Location is where the file was resolved from (path or s3:// URI).
	Location string `json:"location,omitempty"`
	// Open returns a fresh reader over the file content.
	Open func() (io.ReadCloser, error) `json:"-"`
}

// IsCSV reports whether the descriptor is acceptable as a CSV upload:
// its declared media type is text/csv or its name ends in ".csv".
// The suffix check is case-sensitive.
func (f FileDescriptor) IsCSV() bool {
	if f.MediaType == CSVMediaType {
		return true
	}
	return strings.HasSuffix(f.Name, CSVSuffix)
}

// SizeKB returns the file size in kibibytes, for display.
func (f FileDescriptor) SizeKB() float64 {
	if f.Size < 0 {
		return 0
	}
	return float64(f.Size) / 1024
}
