package event

import "time"

const (
	ExpoTicketsTopic         = "expo.tickets"
	EventTicketCreated       = "expo.ticket.created"
	EventTicketStatusChanged = "expo.ticket.status_changed"
)

// TicketEventMetadata is the envelope shared by all ticket events published
// by the expo engine for downstream consumers (ordering side, printers,
// front-of-house displays).
type TicketEventMetadata struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TicketID   string    `json:"ticket_id"`

	// Denormalized data for display
	DisplayCode string `json:"display_code,omitempty"`
	OrderType   string `json:"order_type,omitempty"`
}

// TicketItemPayload mirrors a ticket item at event time. Created events
// carry the full item list so the board can be rebuilt by stream replay.
type TicketItemPayload struct {
	ItemID       string               `json:"item_id"`
	Name         string               `json:"name"`
	Quantity     int                  `json:"quantity"`
	Course       int                  `json:"course"`
	Status       string               `json:"status"`
	Instructions []InstructionPayload `json:"instructions,omitempty"`
}

type TicketCreatedEvent struct {
	TicketEventMetadata
	Status   string              `json:"status"`
	Covers   int                 `json:"covers"`
	Courses  []int               `json:"courses"`
	Items    []TicketItemPayload `json:"items"`
	PlacedAt time.Time           `json:"placed_at"`
}

type TicketStatusChangedEvent struct {
	TicketEventMetadata
	NewStatus      string              `json:"new_status"`
	PreviousStatus string              `json:"previous_status"`
	Items          []TicketItemPayload `json:"items,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}
