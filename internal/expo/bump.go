package expo

import (
	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
)

// BumpItem advances one item a single step through its lifecycle and
// re-derives the ticket status. Bumping an already completed item is a
// silent no-op. The returned ticket is a copy of the post-bump state.
func (e *Engine) BumpItem(ticketID TicketID, itemID ItemID) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tickets[ticketID]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: ticketID}
	}
	item := t.Item(itemID)
	if item == nil {
		return nil, &NotFoundError{Resource: "item", ID: itemID}
	}

	next := itemstatus.Next(item.Status)
	if next == item.Status {
		return t.Clone(), nil
	}
	item.Status = next

	e.deriveLocked(t)
	return t.Clone(), nil
}

// BumpTicket advances the whole ticket one macro step regardless of
// individual item states. Moving to completed drags every item to
// completed and opens the undo window. Tickets on hold or canceled are a
// silent no-op; leaving those takes SetStatus.
func (e *Engine) BumpTicket(id TicketID) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tickets[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: id}
	}

	switch t.Status {
	case ticketstatus.Statuses.Hold, ticketstatus.Statuses.Canceled:
		return t.Clone(), nil
	case ticketstatus.Statuses.Completed:
		return t.Clone(), nil
	}

	next := ticketstatus.Next(t.Status)
	switch next {
	case ticketstatus.Statuses.Preparing:
		t.Status = next
		e.markStartedLocked(t)
	case ticketstatus.Statuses.Ready:
		t.Status = next
	case ticketstatus.Statuses.Completed:
		for _, item := range t.Items {
			item.Status = itemstatus.Statuses.Completed
		}
		e.completeLocked(t)
	}
	return t.Clone(), nil
}

// SetStatus is the manual override path. It sets the ticket status
// directly, bypassing derivation, without touching item states, and clears
// the attention flag. Leaving or entering completed keeps CompletedAt
// consistent; an override to completed is permanent, it does not open an
// undo window.
func (e *Engine) SetStatus(id TicketID, status ticketstatus.Status) (*Ticket, error) {
	if status.IsZero() {
		return nil, &ValidationError{Field: "status", Reason: "is required"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tickets[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: id}
	}

	previous := t.Status
	t.Status = status
	t.FlaggedForAttention = false

	switch {
	case status == ticketstatus.Statuses.Completed && previous != ticketstatus.Statuses.Completed:
		now := e.clock.Now()
		t.CompletedAt = &now
	case status != ticketstatus.Statuses.Completed:
		t.CompletedAt = nil
	}

	// An override can strand the undo slot pointing at a ticket whose
	// status it just rewrote; drop the snapshot rather than let a later
	// undo resurrect stale state.
	if e.undo != nil && e.undo.ticketID == id {
		e.discardUndoLocked()
	}

	return t.Clone(), nil
}

// Acknowledge clears the attention flag after the operator has seen an
// externally updated ticket.
func (e *Engine) Acknowledge(id TicketID) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tickets[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: id}
	}
	t.FlaggedForAttention = false
	return t.Clone(), nil
}

// deriveLocked applies the ticket status derivation rule after an item
// mutation. The rule is deliberately asymmetric: it infers forward progress
// only. Hold and canceled are never assigned here, a preparing ticket never
// falls back to new, and canceled or completed tickets are left alone
// entirely.
func (e *Engine) deriveLocked(t *Ticket) {
	switch t.Status {
	case ticketstatus.Statuses.Canceled, ticketstatus.Statuses.Completed:
		return
	}

	allCompleted := true
	allReadyOrBetter := true
	anyInProgress := false
	for _, item := range t.Items {
		switch item.Status {
		case itemstatus.Statuses.Pending:
			allCompleted = false
			allReadyOrBetter = false
		case itemstatus.Statuses.Preparing:
			allCompleted = false
			allReadyOrBetter = false
			anyInProgress = true
		case itemstatus.Statuses.Ready:
			allCompleted = false
			anyInProgress = true
		case itemstatus.Statuses.Completed:
		}
	}

	switch {
	case allCompleted:
		e.completeLocked(t)
	case allReadyOrBetter:
		t.Status = ticketstatus.Statuses.Ready
	case anyInProgress && t.Status == ticketstatus.Statuses.New:
		t.Status = ticketstatus.Statuses.Preparing
		e.markStartedLocked(t)
	}
}

// markStartedLocked stamps StartedAt exactly once.
func (e *Engine) markStartedLocked(t *Ticket) {
	if t.StartedAt == nil {
		now := e.clock.Now()
		t.StartedAt = &now
	}
}

// completeLocked retires the ticket as completed and opens the undo window.
func (e *Engine) completeLocked(t *Ticket) {
	previous := t.Status
	t.Status = ticketstatus.Statuses.Completed
	e.markStartedLocked(t)
	now := e.clock.Now()
	t.CompletedAt = &now
	e.captureUndoLocked(t, previous)
}
