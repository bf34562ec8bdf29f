package event

import "time"

const (
	OrderTicketsTopic   = "orders.tickets"
	EventOrderPlaced    = "order.placed"
	EventOrderItemAdded = "order.item.added"
	EventOrderCancelled = "order.cancelled"
)

// OrderEventMetadata is the envelope shared by all order events published by
// the ordering side and consumed by the expo engine.
type OrderEventMetadata struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderID    string    `json:"order_id"`

	// Denormalized data for display
	DisplayCode string `json:"display_code,omitempty"`
	OrderType   string `json:"order_type,omitempty"`
}

// OrderItemPayload is one production line within an order event.
type OrderItemPayload struct {
	Name         string               `json:"name"`
	Quantity     int                  `json:"quantity"`
	Course       int                  `json:"course"`
	Instructions []InstructionPayload `json:"instructions,omitempty"`
}

type InstructionPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// OrderPlacedEvent creates a new kitchen ticket with all its items.
type OrderPlacedEvent struct {
	OrderEventMetadata
	Covers  int                `json:"covers"`
	Courses []int              `json:"courses"`
	Items   []OrderItemPayload `json:"items"`
}

// OrderItemAddedEvent adds a line to a ticket that is already on the board.
type OrderItemAddedEvent struct {
	OrderEventMetadata
	Course int              `json:"course"`
	Item   OrderItemPayload `json:"item"`
}

// OrderCancelledEvent voids the ticket for an order.
type OrderCancelledEvent struct {
	OrderEventMetadata
	Reason string `json:"reason,omitempty"`
}
