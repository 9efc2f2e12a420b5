package cli

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress is a progress bar over the traces of a log. Tick is safe for
// concurrent use and fits services.LogOptions.Progress.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total traces writing to w.
func NewProgress(w io.Writer, total int, description string) *Progress {
	return &Progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

// Tick advances the bar by one trace.
func (p *Progress) Tick() {
	_ = p.bar.Add(1)
}

// Finish completes and clears the bar.
func (p *Progress) Finish() {
	_ = p.bar.Finish()
}

// Count returns the number of traces recorded so far.
func (p *Progress) Count() int {
	return int(p.bar.State().CurrentNum)
}
