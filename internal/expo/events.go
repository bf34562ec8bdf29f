package expo

import (
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/expoline/expo/pkg/event"
)

// CreatedEvent builds the outbound created event for a ticket. It carries
// the full item list so the board can be rebuilt by stream replay.
func (e *Engine) CreatedEvent(t *Ticket) event.TicketCreatedEvent {
	return event.TicketCreatedEvent{
		TicketEventMetadata: e.ticketMetadata(event.EventTicketCreated, t),
		Status:              t.Status.Code(),
		Covers:              t.Covers,
		Courses:             t.Courses,
		Items:               itemPayloads(t),
		PlacedAt:            t.PlacedAt,
	}
}

// StatusChangedEvent builds the outbound status-change event for a ticket,
// including per-item statuses for replay.
func (e *Engine) StatusChangedEvent(t *Ticket, previous ticketstatus.Status) event.TicketStatusChangedEvent {
	return event.TicketStatusChangedEvent{
		TicketEventMetadata: e.ticketMetadata(event.EventTicketStatusChanged, t),
		NewStatus:           t.Status.Code(),
		PreviousStatus:      previous.Code(),
		Items:               itemPayloads(t),
		StartedAt:           t.StartedAt,
		CompletedAt:         t.CompletedAt,
	}
}

func (e *Engine) ticketMetadata(eventType string, t *Ticket) event.TicketEventMetadata {
	return event.TicketEventMetadata{
		EventType:   eventType,
		OccurredAt:  e.clock.Now().UTC(),
		TicketID:    t.ID.String(),
		DisplayCode: t.DisplayCode,
		OrderType:   t.OrderType.Code(),
	}
}

func itemPayloads(t *Ticket) []event.TicketItemPayload {
	payloads := make([]event.TicketItemPayload, 0, len(t.Items))
	for _, item := range t.Items {
		payload := event.TicketItemPayload{
			ItemID:   item.ID.String(),
			Name:     item.Name,
			Quantity: item.Quantity,
			Course:   item.Course,
			Status:   item.Status.Code(),
		}
		for _, ins := range item.Instructions {
			payload.Instructions = append(payload.Instructions, event.InstructionPayload{
				Type: ins.Type.Code(),
				Text: ins.Text,
			})
		}
		payloads = append(payloads, payload)
	}
	return payloads
}
