package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"igpicker/pkg/picker"
	"igpicker/pkg/selection"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// FetchProgress prints a line per username as a picker run advances. It
// implements picker.Observer.
type FetchProgress struct {
	mu        sync.Mutex
	startTime time.Time
	done      int
	total     int
	quiet     bool
}

var _ picker.Observer = (*FetchProgress)(nil)

// NewFetchProgress creates a progress printer; quiet suppresses the
// per-username result lines
func NewFetchProgress(quiet bool) *FetchProgress {
	return &FetchProgress{startTime: time.Now(), quiet: quiet}
}

// StateChanged prints state transitions worth telling the user about
func (p *FetchProgress) StateChanged(state picker.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch state {
	case picker.StateFetching:
		p.startTime = time.Now()
		fmt.Fprintf(Out, "%s\n", Magenta("[FETCHING]"))
	case picker.StateRejected:
		fmt.Fprintf(Out, "%s\n", Red("[REJECTED]"))
	}
}

// UsernameStarted prints the progress bar before each request
func (p *FetchProgress) UsernameStarted(index, total int, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	fmt.Fprintf(Out, "\r%s %s %s", Cyan(progressBar(index, total, 20)), Dim(fmt.Sprintf("%d/%d", index, total)), username)
}

// UsernameFinished prints the outcome for a username
func (p *FetchProgress) UsernameFinished(index, total int, result selection.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = index + 1
	fmt.Fprint(Out, "\r\033[K")
	if !p.quiet || result.Status != selection.StatusSuccess {
		PrintResultLine(result)
	}
	if p.done == total {
		fmt.Fprintf(Out, "%s %s\n", Green("[DONE]"), Dim(formatDuration(time.Since(p.startTime))))
	}
}

// Done returns how many usernames have finished
func (p *FetchProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func progressBar(done, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat(ProgressEmpty, width) + "]"
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled) + "]"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
