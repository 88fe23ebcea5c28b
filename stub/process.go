package stub

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/justapithecus/sheetdrop/types"
)

// Stage messages reported while a job is processing.
const (
	msgStarted    = "Processing CSV file..."
	msgSheetReady = "Master sheet ready, processing CSV..."
	msgUploading  = "CSV processed, checking for duplicates and uploading..."
)

// Sheet limits that downgrade an upload to a warning.
const (
	maxColumns   = 26
	maxCellChars = 50000
	maxRows      = 100000
)

var errEmptyCSV = errors.New("csv file is empty")

// csvSummary is what processing learns about an uploaded file.
type csvSummary struct {
	rows    int
	columns int
	issues  []string
}

// summarize parses content as CSV with a header row, counting the
// non-blank data rows and collecting sheet-limit issues.
func summarize(content []byte) (csvSummary, error) {
	r := csv.NewReader(bytes.NewReader(content))
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return csvSummary{}, errEmptyCSV
	}
	if err != nil {
		return csvSummary{}, fmt.Errorf("parse csv: %w", err)
	}

	longest := make([]int, len(header))
	rows := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return csvSummary{}, fmt.Errorf("parse csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		rows++
		for i, cell := range rec {
			if n := utf8.RuneCountInString(cell); n > longest[i] {
				longest[i] = n
			}
		}
	}
	if rows == 0 {
		return csvSummary{}, errEmptyCSV
	}

	sum := csvSummary{rows: rows, columns: len(header)}
	for i, col := range header {
		if longest[i] > maxCellChars {
			sum.issues = append(sum.issues, fmt.Sprintf("Column '%s' contains text longer than 50,000 characters", strings.TrimSpace(col)))
		}
	}
	if sum.columns > maxColumns {
		sum.issues = append(sum.issues, "CSV has more than 26 columns, which might cause display issues")
	}
	if sum.rows > maxRows {
		sum.issues = append(sum.issues, "CSV has more than 100,000 rows, which might be slow to process")
	}
	return sum, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// sizeMB converts a byte count to mebibytes rounded to two decimals.
func sizeMB(n int) float64 {
	return math.Round(float64(n)/(1<<20)*100) / 100
}

// process walks one job through its stages. It stops early when the
// server shuts down.
func (s *Server) process(id string, client types.Client, content []byte) {
	logger := s.logger.With(map[string]any{"processing_id": id, "client_id": client.ID})

	if !s.pause() {
		return
	}
	s.jobs.set(id, types.StatusProcessing, msgSheetReady, 0.2, nil)

	sum, err := summarize(content)
	if err != nil {
		s.jobs.set(id, types.StatusFailed, "CSV processing failed: "+err.Error(), 0, nil)
		logger.Warn("csv processing failed", map[string]any{"error": err.Error()})
		return
	}

	if !s.pause() {
		return
	}
	s.jobs.set(id, types.StatusProcessing, msgUploading, 0.5, nil)

	if !s.pause() {
		return
	}
	info := &types.DataInfo{Rows: sum.rows, Columns: sum.columns, FileSizeMB: sizeMB(len(content))}
	if len(sum.issues) > 0 {
		s.jobs.set(id, types.StatusWarning, "Data uploaded with warnings: "+strings.Join(sum.issues, "; "), 1, info)
		logger.Info("job finished with warnings", map[string]any{"issues": len(sum.issues)})
		return
	}

	msg := fmt.Sprintf("Added %d new rows to '%s'. Data: %d rows, %d columns",
		sum.rows, client.SheetName, sum.rows, sum.columns)
	s.jobs.set(id, types.StatusCompleted, msg, 1, info)
	logger.Info("job completed", map[string]any{"rows": sum.rows, "columns": sum.columns})
}

// pause waits one step delay. Returns false if the server is shutting down.
func (s *Server) pause() bool {
	t := time.NewTimer(s.config.StepDelay)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
