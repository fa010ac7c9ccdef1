// Package progress draws progress bars and spinners on a terminal. Nothing is
// drawn unless the destination is a terminal, so piped output stays clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Bar renders an ASCII progress bar.
type Bar struct {
	Total   int
	Current int
	Label   string
	Width   int
	Enabled bool

	mu  sync.Mutex
	out io.Writer
}

// New creates a progress bar on w. It stays silent when w is not a terminal
// or DASH_NO_PROGRESS=1.
func New(w io.Writer, label string, total int) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: Enabled(w),
		out:     w,
	}
}

// Increment advances the bar by 1 and redraws. Safe for concurrent use.
func (b *Bar) Increment(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Current = min(b.Current+1, b.Total)
	b.render(status)
}

// Finish clears the bar and prints summary.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Enabled {
		fmt.Fprintf(b.out, "\r\033[K✓ %s\n", summary)
	}
}

func (b *Bar) render(status string) {
	if !b.Enabled {
		return
	}
	filled := 0
	if b.Total > 0 {
		filled = b.Current * b.Width / b.Total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)
	fmt.Fprintf(b.out, "\r\033[K%s [%s] %d/%d  %s", b.Label, bar, b.Current, b.Total, status)
}

// Pct returns how far the bar is, 0 to 100.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

// Spinner shows activity while waiting on something with no known length,
// such as a suggestion request.
type Spinner struct {
	Label   string
	Enabled bool

	mu   sync.Mutex
	out  io.Writer
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner on w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{Label: label, Enabled: Enabled(w), out: w}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.Enabled {
		return
	}
	s.mu.Lock()
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		frames := []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r\033[K%c %s", frames[i%len(frames)], s.Label)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and clears the line. Calling Stop on a spinner
// that never started is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
	fmt.Fprint(s.out, "\r\033[K")
}

// Enabled reports whether progress should be drawn on w.
func Enabled(w io.Writer) bool {
	if os.Getenv("DASH_NO_PROGRESS") == "1" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
