package engine

import "time"

// SetClock replaces the clock used for duplicate suppression.
func (w *Worker) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}
