package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/expoline/expo/internal/expo"
	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/expoline/expo/pkg/event"
	"github.com/google/uuid"
)

// OrderSubscriber feeds order events from the ordering side into the
// engine: placed orders become tickets, late line additions flag the ticket
// for attention, cancellations void it. The order id doubles as the ticket
// id so follow-up events need no lookup table.
type OrderSubscriber struct {
	subscriber events.Subscriber
	engine     *expo.Engine
	repo       expo.TicketRepository
	publisher  events.Publisher
	logger     apt.Logger
}

func NewOrderSubscriber(
	subscriber events.Subscriber,
	engine *expo.Engine,
	repo expo.TicketRepository,
	publisher events.Publisher,
	logger apt.Logger,
) *OrderSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderSubscriber{
		subscriber: subscriber,
		engine:     engine,
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
	}
}

func (s *OrderSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting order subscriber", "topic", event.OrderTicketsTopic)

	if s.subscriber == nil {
		return fmt.Errorf("order subscriber not configured")
	}
	if err := s.subscriber.Subscribe(ctx, event.OrderTicketsTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.OrderTicketsTopic, err)
	}
	return nil
}

func (s *OrderSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var metadata event.OrderEventMetadata
	if err := json.Unmarshal(msg, &metadata); err != nil {
		s.logger.Info("invalid order event", "error", err)
		return nil
	}

	switch metadata.EventType {
	case event.EventOrderPlaced:
		return s.handlePlaced(ctx, msg)
	case event.EventOrderItemAdded:
		return s.handleItemAdded(ctx, msg)
	case event.EventOrderCancelled:
		return s.handleCancelled(ctx, msg)
	default:
		s.logger.Debug("unknown order event type", "event_type", metadata.EventType)
		return nil
	}
}

func (s *OrderSubscriber) handlePlaced(ctx context.Context, msg []byte) error {
	var evt event.OrderPlacedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid order.placed event", "error", err)
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		s.logger.Info("invalid order_id in event", "order_id", evt.OrderID)
		return nil
	}

	if _, err := s.engine.Ticket(orderID); err == nil {
		// Redelivery of an order we already boarded.
		return nil
	}

	ot := ordertype.ByCode(evt.OrderType)
	if ot == nil {
		s.logger.Info("unknown order type in event", "order_type", evt.OrderType)
		return nil
	}

	draft := expo.TicketDraft{
		ID:          &orderID,
		DisplayCode: evt.DisplayCode,
		OrderType:   *ot,
		Covers:      evt.Covers,
		Courses:     evt.Courses,
	}
	for _, item := range evt.Items {
		draft.Items = append(draft.Items, itemDraft(item))
	}

	ticket, err := s.engine.CreateTicket(draft)
	if err != nil {
		// Malformed orders are dropped, not retried; the ordering side owns
		// the fix.
		s.logger.Errorf("Failed to create ticket for order %s: %v", evt.OrderID, err)
		return nil
	}

	s.persist(ctx, ticket)
	s.logger.Infof("Created ticket %s for order %s", ticket.ID, evt.OrderID)
	s.publishCreated(ctx, ticket)
	return nil
}

func (s *OrderSubscriber) handleItemAdded(ctx context.Context, msg []byte) error {
	var evt event.OrderItemAddedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid order.item.added event", "error", err)
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return nil
	}

	update := expo.ExternalUpdate{
		AddItems: []expo.ItemDraft{itemDraft(evt.Item)},
	}
	if evt.Course > 0 {
		update.AddCourses = []int{evt.Course}
	}

	ticket, err := s.engine.ApplyExternalUpdate(orderID, update)
	if err != nil {
		s.logger.Info("cannot apply order item to ticket", "order_id", evt.OrderID, "error", err)
		return nil
	}

	s.persist(ctx, ticket)
	s.logger.Infof("Added item to ticket %s, flagged for attention", ticket.ID)
	return nil
}

func (s *OrderSubscriber) handleCancelled(ctx context.Context, msg []byte) error {
	var evt event.OrderCancelledEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid order.cancelled event", "error", err)
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return nil
	}

	previous, err := s.engine.Ticket(orderID)
	if err != nil {
		s.logger.Info("cannot find ticket for cancelled order", "order_id", evt.OrderID)
		return nil
	}

	ticket, err := s.engine.SetStatus(orderID, ticketstatus.Statuses.Canceled)
	if err != nil {
		s.logger.Info("cannot cancel ticket", "order_id", evt.OrderID, "error", err)
		return nil
	}

	s.persist(ctx, ticket)
	s.logger.Infof("Canceled ticket %s for order %s", ticket.ID, evt.OrderID)
	s.publishStatusChange(ctx, ticket, previous.Status)
	return nil
}

func itemDraft(payload event.OrderItemPayload) expo.ItemDraft {
	d := expo.ItemDraft{
		Name:     payload.Name,
		Quantity: payload.Quantity,
		Course:   payload.Course,
	}
	for _, ins := range payload.Instructions {
		if it := instruction.ByCode(ins.Type); it != nil {
			d.Instructions = append(d.Instructions, expo.Instruction{Type: *it, Text: ins.Text})
		}
	}
	return d
}

func (s *OrderSubscriber) persist(ctx context.Context, t *expo.Ticket) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, t); err != nil {
		s.logger.Errorf("Failed to persist ticket %s: %v", t.ID, err)
	}
}

func (s *OrderSubscriber) publishCreated(ctx context.Context, t *expo.Ticket) {
	if s.publisher == nil {
		return
	}
	payload := s.engine.CreatedEvent(t)
	eventBytes, _ := json.Marshal(payload)
	if err := s.publisher.Publish(ctx, event.ExpoTicketsTopic, eventBytes); err != nil {
		s.logger.Errorf("Failed to publish ticket.created event: %v", err)
	}
}

func (s *OrderSubscriber) publishStatusChange(ctx context.Context, t *expo.Ticket, previous ticketstatus.Status) {
	if s.publisher == nil {
		return
	}
	payload := s.engine.StatusChangedEvent(t, previous)
	eventBytes, _ := json.Marshal(payload)
	if err := s.publisher.Publish(ctx, event.ExpoTicketsTopic, eventBytes); err != nil {
		s.logger.Errorf("Failed to publish status_changed event: %v", err)
	}
}
