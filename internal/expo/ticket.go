package expo

import (
	"time"

	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/google/uuid"
)

type TicketID = uuid.UUID
type ItemID = uuid.UUID

// Instruction is a display-only preparation note on an item. Instructions
// are fixed at the moment the item lands on the board.
type Instruction struct {
	Type instruction.Type `json:"type"`
	Text string           `json:"text"`
}

type Item struct {
	ID           ItemID            `json:"id"`
	Name         string            `json:"name"`
	Quantity     int               `json:"quantity"`
	Course       int               `json:"course"`
	Status       itemstatus.Status `json:"status"`
	Instructions []Instruction     `json:"instructions,omitempty"`
}

// Ticket is one customer order as tracked by the kitchen. Items keep their
// insertion order; Courses lists the course numbers present on the ticket.
type Ticket struct {
	ID          TicketID            `json:"id"`
	DisplayCode string              `json:"display_code"`
	OrderType   ordertype.Type      `json:"order_type"`
	Covers      int                 `json:"covers"`
	Status      ticketstatus.Status `json:"status"`
	Items       []*Item             `json:"items"`
	Courses     []int               `json:"courses"`

	PlacedAt    time.Time  `json:"placed_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// FlaggedForAttention is set when an external update lands on a ticket
	// already visible on the board, and cleared by operator acknowledgment.
	FlaggedForAttention bool `json:"flagged_for_attention"`
}

// Item returns the item with the given id, or nil.
func (t *Ticket) Item(id ItemID) *Item {
	for _, it := range t.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// HasCourse reports whether the course number appears on the ticket.
func (t *Ticket) HasCourse(course int) bool {
	for _, c := range t.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so read accessors never hand out aliases into
// engine-owned state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.Courses = append([]int(nil), t.Courses...)
	out.Items = make([]*Item, len(t.Items))
	for i, it := range t.Items {
		cp := *it
		cp.Instructions = append([]Instruction(nil), it.Instructions...)
		out.Items[i] = &cp
	}
	if t.StartedAt != nil {
		ts := *t.StartedAt
		out.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	return &out
}

// TicketDraft describes a ticket to be created. ID is optional; when nil the
// engine assigns one. All items start pending.
type TicketDraft struct {
	ID          *TicketID
	DisplayCode string
	OrderType   ordertype.Type
	Covers      int
	Courses     []int
	Items       []ItemDraft
}

type ItemDraft struct {
	Name         string
	Quantity     int
	Course       int
	Instructions []Instruction
}

// ExternalUpdate is an out-of-band mutation of a ticket already on the
// board, e.g. a new line rung in while the kitchen is mid-fire. Applying
// one flags the ticket for operator acknowledgment.
type ExternalUpdate struct {
	AddItems   []ItemDraft
	AddCourses []int
	Covers     *int
}
