package stub

import (
	"sync"

	"github.com/justapithecus/sheetdrop/types"
)

// jobTable holds the latest status of every upload, keyed by processing id.
type jobTable struct {
	mu   sync.Mutex
	jobs map[string]types.StatusResponse
}

func newJobTable() *jobTable {
	return &jobTable{jobs: make(map[string]types.StatusResponse)}
}

func (t *jobTable) set(id string, tag types.StatusTag, message string, progress float64, info *types.DataInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = types.StatusResponse{
		Status:   tag,
		Message:  message,
		Progress: &progress,
		DataInfo: info,
	}
}

func (t *jobTable) get(id string) (types.StatusResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	resp, ok := t.jobs[id]
	return resp, ok
}
