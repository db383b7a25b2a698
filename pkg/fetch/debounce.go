package fetch

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period for search and filter inputs.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delivers only the last value pushed within the interval.
type Debouncer[V any] struct {
	mu       sync.Mutex
	interval time.Duration
	fire     func(V)
	timer    *time.Timer
	stopped  bool
}

func NewDebouncer[V any](interval time.Duration, fire func(V)) *Debouncer[V] {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer[V]{interval: interval, fire: fire}
}

// Push records v and restarts the quiet period.
func (d *Debouncer[V]) Push(v V) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped || d.timer != t {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fire(v)
	})
	d.timer = t
}

// Stop discards any pending value; later pushes are ignored.
func (d *Debouncer[V]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Cancel discards any pending value without stopping the debouncer.
func (d *Debouncer[V]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
