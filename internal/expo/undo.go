package expo

import (
	"time"

	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
)

// undoSnapshot captures the state needed to reverse a completion. Only one
// is held at a time; a newer completion replaces it and the older ticket's
// undo window is forfeited.
type undoSnapshot struct {
	ticketID     TicketID
	previous     ticketstatus.Status
	itemStatuses map[ItemID]itemstatus.Status
	completedAt  time.Time
	deadline     time.Time
}

// captureUndoLocked arms the undo window for a ticket that just completed.
// Any previously pending snapshot is replaced, last-wins.
func (e *Engine) captureUndoLocked(t *Ticket, previous ticketstatus.Status) {
	e.discardUndoLocked()

	itemStatuses := make(map[ItemID]itemstatus.Status, len(t.Items))
	for _, item := range t.Items {
		itemStatuses[item.ID] = item.Status
	}

	now := e.clock.Now()
	e.undo = &undoSnapshot{
		ticketID:     t.ID,
		previous:     previous,
		itemStatuses: itemStatuses,
		completedAt:  now,
		deadline:     now.Add(e.opts.UndoWindow),
	}

	seq := e.undoSeq
	e.undoTimer = e.sched.AfterFunc(e.opts.UndoWindow, func() {
		e.expireUndo(seq)
	})
}

// discardUndoLocked drops the pending snapshot and cancels its timer.
// Bumping the sequence fences a timer that already fired but has not taken
// the lock yet.
func (e *Engine) discardUndoLocked() {
	if e.undoTimer != nil {
		e.undoTimer.Stop()
		e.undoTimer = nil
	}
	e.undo = nil
	e.undoSeq++
}

// expireUndo runs when the undo window times out. The snapshot becomes
// permanent history unless the sequence shows it was already replaced or
// consumed.
func (e *Engine) expireUndo(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.undoSeq || e.undo == nil {
		return
	}
	e.undo = nil
	e.undoTimer = nil
	e.undoSeq++
}

// Undo reverses the most recent completion if its window is still open.
// The ticket and every item come back as preparing, never the literal
// pre-completion state: the kitchen re-fires rather than resuming. With no
// live snapshot, or past the deadline, Undo is a silent no-op and returns
// nil.
func (e *Engine) Undo() *Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.undo == nil {
		return nil
	}
	if e.clock.Now().After(e.undo.deadline) {
		e.discardUndoLocked()
		return nil
	}

	t, ok := e.tickets[e.undo.ticketID]
	if !ok {
		e.discardUndoLocked()
		return nil
	}

	t.Status = ticketstatus.Statuses.Preparing
	t.CompletedAt = nil
	for _, item := range t.Items {
		item.Status = itemstatus.Statuses.Preparing
	}

	e.discardUndoLocked()
	return t.Clone()
}

// UndoPending reports whether an undo window is currently open and for
// which ticket.
func (e *Engine) UndoPending() (TicketID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.undo == nil {
		return TicketID{}, false
	}
	return e.undo.ticketID, true
}
