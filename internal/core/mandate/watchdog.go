package mandate

import (
	"os"
	"time"
)

// watch polls the manifest and sources, rebuilding when any modification
// time changes. File events only shorten the wait.
func (m *Mandate) watch() {
	defer close(m.done)

	var wake <-chan struct{}
	m.mu.Lock()
	if m.sub != nil {
		wake = m.sub.C()
	}
	m.mu.Unlock()

	timer := time.NewTimer(m.interval())
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-timer.C:
		case <-wake:
			if !m.sleep(m.debounce) {
				return
			}
		}

		if m.changed() {
			m.logger.Info("mandate sources changed, rebuilding")
			// Failures are recorded and logged by Build.
			_ = m.Build(m.ctx)
		}
		timer.Reset(m.interval())
	}
}

func (m *Mandate) interval() time.Duration {
	if g := m.current.Load(); g != nil && g.refresh > 0 {
		return g.refresh
	}
	return m.pollInterval
}

func (m *Mandate) sleep(d time.Duration) bool {
	if d <= 0 {
		return m.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-m.ctx.Done():
		return false
	}
}

// changed compares current modification times against those recorded by
// the last build.
func (m *Mandate) changed() bool {
	m.mu.Lock()
	prev := m.stamps
	m.mu.Unlock()

	for p, t := range prev {
		if !stat(p).Equal(t) {
			return true
		}
	}
	return false
}

func statAll(paths []string) map[string]time.Time {
	out := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		out[p] = stat(p)
	}
	return out
}

// stat returns the modification time, or the zero time for a missing file.
func stat(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
