package engine

import "time"

// Clock returns the current time. Tests inject a fake one through Options.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// TimeOut is a restartable deadline with a fixed interval. The zero value is
// inactive. It is not safe for concurrent use; the owning Status guards it.
type TimeOut struct {
	clock    Clock
	interval time.Duration
	deadline time.Time
	active   bool
}

// NewTimeOut creates an inactive timer with the given interval.
func NewTimeOut(clock Clock, interval time.Duration) TimeOut {
	return TimeOut{clock: clock, interval: interval}
}

// Startup sets the interval and arms the timer from now.
func (t *TimeOut) Startup(interval time.Duration) {
	t.interval = interval
	t.Update()
}

// Update re-arms the timer from now with the current interval.
func (t *TimeOut) Update() {
	t.deadline = t.clock.now().Add(t.interval)
	t.active = true
}

// SetInterval changes the interval without re-arming.
func (t *TimeOut) SetInterval(interval time.Duration) {
	t.interval = interval
}

// Interval returns the configured interval.
func (t *TimeOut) Interval() time.Duration {
	return t.interval
}

// Remain returns the time left before the deadline, never negative.
func (t *TimeOut) Remain() time.Duration {
	if !t.active {
		return 0
	}
	return max(t.deadline.Sub(t.clock.now()), 0)
}

// IsActive reports whether the timer was armed and not cleared.
func (t *TimeOut) IsActive() bool {
	return t.active
}

// IsTimeOut reports whether an armed timer reached its deadline.
func (t *TimeOut) IsTimeOut() bool {
	return t.active && !t.clock.now().Before(t.deadline)
}

// ToNextTime re-arms and returns true when the deadline was reached.
func (t *TimeOut) ToNextTime() bool {
	if !t.IsTimeOut() {
		return false
	}
	t.Update()
	return true
}

// Clear disarms the timer.
func (t *TimeOut) Clear() {
	t.active = false
	t.interval = 0
}
