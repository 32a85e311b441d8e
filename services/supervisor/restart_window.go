package supervisor

import "time"

// RestartWindow is a fixed-size ring of the most recent failure times.
type RestartWindow struct {
	times []time.Time
	next  int
	count int
}

func NewRestartWindow(size int) *RestartWindow {
	if size < 1 {
		size = 1
	}
	return &RestartWindow{times: make([]time.Time, size)}
}

func (w *RestartWindow) Record(t time.Time) {
	w.times[w.next] = t
	w.next = (w.next + 1) % len(w.times)
	if w.count < len(w.times) {
		w.count++
	}
}

func (w *RestartWindow) Full() bool {
	return w.count == len(w.times)
}

// Oldest returns the earliest retained entry, or the zero time when empty.
func (w *RestartWindow) Oldest() time.Time {
	if w.count == 0 {
		return time.Time{}
	}
	if !w.Full() {
		return w.times[0]
	}
	return w.times[w.next]
}

// Flapping reports whether the window is full and its oldest entry is less
// than interval before now.
func (w *RestartWindow) Flapping(now time.Time, interval time.Duration) bool {
	return w.Full() && now.Sub(w.Oldest()) < interval
}

func (w *RestartWindow) Len() int {
	return w.count
}
