package upload

import "github.com/justapithecus/sheetdrop/types"

// Fixed progress points of the attempt lifecycle.
const (
	ProgressIdle       = 0.0
	ProgressSubmitting = 10.0
	ProgressAccepted   = 30.0
	ProgressDone       = 100.0
	ProgressFailed     = 0.0

	// processingBand is the share of the bar reserved for backend processing.
	processingBand = ProgressDone - ProgressAccepted
)

// DisplayProgress maps a backend fraction in [0,1] onto the [30,100] band.
// Out-of-range fractions are clamped.
func DisplayProgress(fraction float64) float64 {
	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	return ProgressAccepted + fraction*processingBand
}

// transition is the outcome of classifying one status response.
type transition struct {
	phase    types.Phase
	progress float64
	message  string
	dataInfo *types.DataInfo
	terminal bool
	// changed is false when the response has no effect on the attempt.
	changed bool
}

// classify maps a status response onto the next attempt fields.
// current is the progress shown before the response; it never decreases
// while the attempt stays in Polling.
func classify(current float64, resp *types.StatusResponse) transition {
	switch resp.Status {
	case types.StatusProcessing:
		next := current
		if resp.Progress != nil {
			next = max(current, DisplayProgress(*resp.Progress))
		}
		return transition{
			phase:    types.PhasePolling,
			progress: next,
			message:  resp.Message,
			dataInfo: resp.DataInfo,
			changed:  true,
		}
	case types.StatusCompleted:
		return transition{
			phase:    types.PhaseCompleted,
			progress: ProgressDone,
			message:  resp.Message,
			dataInfo: resp.DataInfo,
			terminal: true,
			changed:  true,
		}
	case types.StatusWarning:
		return transition{
			phase:    types.PhaseWarning,
			progress: ProgressDone,
			message:  resp.Message,
			dataInfo: resp.DataInfo,
			terminal: true,
			changed:  true,
		}
	case types.StatusFailed:
		return transition{
			phase:    types.PhaseFailed,
			progress: ProgressFailed,
			message:  ErrorMarker + resp.Message,
			dataInfo: resp.DataInfo,
			terminal: true,
			changed:  true,
		}
	default:
		return transition{phase: types.PhasePolling, progress: current}
	}
}
