package expo

import (
	"time"

	"github.com/expoline/expo/pkg/enums/ticketstatus"
)

// Alert is the elapsed-time classification of a ticket on the board.
type Alert string

const (
	AlertNone    Alert = "none"
	AlertDelayed Alert = "delayed"
	AlertLate    Alert = "late"
)

// Classify grades a ticket by how long it has been waiting since it was
// placed. Retired tickets never alert. The result is a function of the
// wall clock, so callers must re-evaluate on every poll instead of caching.
func Classify(t *Ticket, now time.Time, delayedAfterMinutes, lateAfterMinutes int) Alert {
	switch t.Status {
	case ticketstatus.Statuses.Completed, ticketstatus.Statuses.Canceled:
		return AlertNone
	}

	elapsedMinutes := int(now.Sub(t.PlacedAt) / time.Minute)
	switch {
	case elapsedMinutes >= lateAfterMinutes:
		return AlertLate
	case elapsedMinutes >= delayedAfterMinutes:
		return AlertDelayed
	default:
		return AlertNone
	}
}

// AlertFor classifies a ticket against the engine's clock and thresholds.
func (e *Engine) AlertFor(t *Ticket) Alert {
	e.mu.RLock()
	opts := e.opts
	now := e.clock.Now()
	e.mu.RUnlock()
	return Classify(t, now, opts.DelayedAfterMinutes, opts.LateAfterMinutes)
}
