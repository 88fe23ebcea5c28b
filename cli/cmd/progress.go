package cmd

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"github.com/justapithecus/sheetdrop/types"
)

const progressTemplate = `{{string . "phase"}} {{bar . }} {{percent . }} {{string . "message"}}`

// progressBar renders attempt snapshots as a terminal progress bar for
// headless uploads. A nil *progressBar is a no-op.
type progressBar struct {
	bar *pb.ProgressBar
}

func newProgressBar(w io.Writer) *progressBar {
	bar := pb.New64(100)
	bar.SetWriter(w)
	bar.SetTemplateString(progressTemplate)
	bar.Set("phase", string(types.PhaseIdle))
	bar.Set("message", "")
	bar.Start()
	return &progressBar{bar: bar}
}

// update is an upload.Options.OnChange callback.
func (p *progressBar) update(s types.AttemptState) {
	if p == nil {
		return
	}
	p.bar.SetCurrent(int64(s.Progress))
	p.bar.Set("phase", string(s.Phase))
	p.bar.Set("message", s.Message)
}

func (p *progressBar) finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
