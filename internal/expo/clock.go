package expo

import "time"

// Clock is the single time source for the engine. Alert classification and
// undo expiry both read through it so tests can drive virtual time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Timer is a cancellable deferred action handle.
type Timer interface {
	// Stop cancels the timer. It reports whether the cancellation happened
	// before the action fired, and is safe to call more than once.
	Stop() bool
}

// Scheduler schedules a single deferred action. The engine uses exactly one
// pending action at a time, the undo window expiry.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
