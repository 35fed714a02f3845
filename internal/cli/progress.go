package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type spinner struct {
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// startSpinner animates description on w until Stop is called or ctx ends.
// A disabled spinner is a no-op so callers never need to branch.
func startSpinner(ctx context.Context, w io.Writer, enabled bool, description string) *spinner {
	s := &spinner{stop: make(chan struct{}), done: make(chan struct{})}
	if !enabled {
		close(s.done)
		return s
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	tick := time.NewTicker(120 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.bar.Finish()
			return
		case <-s.stop:
			_ = s.bar.Finish()
			return
		case <-tick.C:
			_ = s.bar.Add(1)
		}
	}
}

// Stop clears the spinner and waits for it to finish drawing. Safe to call
// more than once.
func (s *spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
