package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates a message on a terminal while a long call runs.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	started bool
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start starts the animation.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
			select {
			case <-s.done:
				return
			case <-t.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line. It may be called more than
// once and without Start.
func (s *Spinner) Stop() {
	s.finish("\r\033[K")
}

// Success stops with a success line.
func (s *Spinner) Success(message string) {
	s.finish("\r\033[Kok " + message + "\n")
}

// Fail stops with a failure line.
func (s *Spinner) Fail(message string) {
	s.finish("\r\033[Kfailed " + message + "\n")
}

func (s *Spinner) finish(tail string) {
	s.once.Do(func() {
		close(s.done)
		if s.started {
			<-s.stopped
		}
		fmt.Fprint(s.w, tail)
	})
}
