package expo

import (
	"fmt"

	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/google/uuid"
)

// CreateTicket constructs a ticket from a draft with every item pending and
// places it on the board. It returns a copy of the stored ticket.
func (e *Engine) CreateTicket(draft TicketDraft) (*Ticket, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New()
	if draft.ID != nil {
		id = *draft.ID
		if _, exists := e.tickets[id]; exists {
			return nil, &ValidationError{Field: "id", Reason: "ticket already exists"}
		}
	}

	t := &Ticket{
		ID:          id,
		DisplayCode: draft.DisplayCode,
		OrderType:   draft.OrderType,
		Covers:      draft.Covers,
		Status:      ticketstatus.Statuses.New,
		Courses:     append([]int(nil), draft.Courses...),
		PlacedAt:    e.clock.Now(),
	}
	for _, d := range draft.Items {
		t.Items = append(t.Items, newItem(d))
	}

	e.tickets[id] = t
	e.order = append(e.order, id)
	return t.Clone(), nil
}

func newItem(d ItemDraft) *Item {
	return &Item{
		ID:           uuid.New(),
		Name:         d.Name,
		Quantity:     d.Quantity,
		Course:       d.Course,
		Status:       itemstatus.Statuses.Pending,
		Instructions: append([]Instruction(nil), d.Instructions...),
	}
}

func validateDraft(draft TicketDraft) error {
	if draft.OrderType.IsZero() {
		return &ValidationError{Field: "order_type", Reason: "is required"}
	}
	if len(draft.Courses) == 0 {
		return &ValidationError{Field: "courses", Reason: "at least one course is required"}
	}
	if draft.Covers < 0 {
		return &ValidationError{Field: "covers", Reason: "must not be negative"}
	}
	if len(draft.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	if draft.OrderType == ordertype.Types.DineIn && draft.Covers < 1 {
		return &ValidationError{Field: "covers", Reason: "must be positive for dine-in"}
	}
	courses := make(map[int]bool, len(draft.Courses))
	for _, c := range draft.Courses {
		courses[c] = true
	}
	for i, item := range draft.Items {
		if err := validateItemDraft(item, courses, i); err != nil {
			return err
		}
	}
	return nil
}

func validateItemDraft(item ItemDraft, courses map[int]bool, pos int) error {
	if item.Name == "" {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].name", pos),
			Reason: "is required",
		}
	}
	if item.Quantity < 1 {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].quantity", pos),
			Reason: "must be positive",
		}
	}
	if !courses[item.Course] {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].course", pos),
			Reason: fmt.Sprintf("course %d is not on the ticket", item.Course),
		}
	}
	return nil
}

// Ticket returns a copy of the ticket with the given id.
func (e *Engine) Ticket(id TicketID) (*Ticket, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tickets[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: id}
	}
	return t.Clone(), nil
}

// Tickets returns copies of all tickets in insertion order, retired ones
// included.
func (e *Engine) Tickets() []*Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Ticket, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.tickets[id].Clone())
	}
	return out
}

// ApplyExternalUpdate mutates a ticket already on the board from an outside
// event and flags it for operator acknowledgment instead of letting the
// change slip in silently. New items start pending; the derivation rule is
// forward-only, so a ticket already ready keeps its status until the new
// items catch up.
func (e *Engine) ApplyExternalUpdate(id TicketID, update ExternalUpdate) (*Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tickets[id]
	if !ok {
		return nil, &NotFoundError{Resource: "ticket", ID: id}
	}

	if update.Covers != nil && *update.Covers < 0 {
		return nil, &ValidationError{Field: "covers", Reason: "must not be negative"}
	}

	courses := make(map[int]bool, len(t.Courses)+len(update.AddCourses))
	for _, c := range t.Courses {
		courses[c] = true
	}
	newCourses := append([]int(nil), t.Courses...)
	for _, c := range update.AddCourses {
		if !courses[c] {
			courses[c] = true
			newCourses = append(newCourses, c)
		}
	}
	for i, d := range update.AddItems {
		if err := validateItemDraft(d, courses, i); err != nil {
			return nil, err
		}
	}

	// Validation passed; apply the whole update.
	t.Courses = newCourses
	if update.Covers != nil {
		t.Covers = *update.Covers
	}
	for _, d := range update.AddItems {
		t.Items = append(t.Items, newItem(d))
	}
	t.FlaggedForAttention = true

	e.deriveLocked(t)
	return t.Clone(), nil
}
