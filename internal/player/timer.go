package player

import "time"

// questionTimer measures time spent on the question currently displayed.
// time.Now carries a monotonic reading, so laps are immune to wall-clock steps.
type questionTimer struct {
	now     func() time.Time
	started time.Time
}

func newQuestionTimer(now func() time.Time) *questionTimer {
	return &questionTimer{now: now, started: now()}
}

// reset starts a new window at the current instant.
func (t *questionTimer) reset() {
	t.started = t.now()
}

// elapsed reads the open window without closing it.
func (t *questionTimer) elapsed() time.Duration {
	d := t.now().Sub(t.started)
	if d < 0 {
		return 0
	}
	return d
}

// lap closes the current window, returns its length and opens a new one.
func (t *questionTimer) lap() time.Duration {
	now := t.now()
	d := now.Sub(t.started)
	t.started = now
	if d < 0 {
		return 0
	}
	return d
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
