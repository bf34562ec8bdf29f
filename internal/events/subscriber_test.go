package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/expoline/expo/internal/expo"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/expoline/expo/pkg/event"
	"github.com/google/uuid"
)

// MockSubscriber implements events.Subscriber for testing.
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// MockTicketRepo implements expo.TicketRepository for testing.
type MockTicketRepo struct {
	tickets map[uuid.UUID]*expo.Ticket

	SaveFunc     func(ctx context.Context, t *expo.Ticket) error
	FindByIDFunc func(ctx context.Context, id expo.TicketID) (*expo.Ticket, error)
	ListFunc     func(ctx context.Context) ([]expo.Ticket, error)
}

func NewMockTicketRepo() *MockTicketRepo {
	return &MockTicketRepo{tickets: make(map[uuid.UUID]*expo.Ticket)}
}

func (m *MockTicketRepo) Save(ctx context.Context, t *expo.Ticket) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, t)
	}
	m.tickets[t.ID] = t.Clone()
	return nil
}

func (m *MockTicketRepo) FindByID(ctx context.Context, id expo.TicketID) (*expo.Ticket, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	t, exists := m.tickets[id]
	if !exists {
		return nil, errors.New("ticket not found")
	}
	return t.Clone(), nil
}

func (m *MockTicketRepo) List(ctx context.Context) ([]expo.Ticket, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	result := make([]expo.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		result = append(result, *t.Clone())
	}
	return result, nil
}

// MockPublisher implements events.Publisher for testing.
type MockPublisher struct {
	PublishedEvents []struct {
		Topic string
		Data  []byte
	}
	PublishFunc func(ctx context.Context, topic string, data []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.PublishedEvents = append(m.PublishedEvents, struct {
		Topic string
		Data  []byte
	}{topic, data})
	return nil
}

type subscriberFixture struct {
	subscriber *OrderSubscriber
	engine     *expo.Engine
	repo       *MockTicketRepo
	publisher  *MockPublisher
}

func newSubscriberFixture() *subscriberFixture {
	engine := expo.New(expo.Options{}, nil, nil)
	repo := NewMockTicketRepo()
	publisher := NewMockPublisher()
	s := NewOrderSubscriber(&MockSubscriber{}, engine, repo, publisher, apt.NewNoopLogger())
	return &subscriberFixture{subscriber: s, engine: engine, repo: repo, publisher: publisher}
}

func (f *subscriberFixture) handle(t *testing.T, evt interface{}) {
	t.Helper()
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	if err := f.subscriber.handleEvent(context.Background(), data); err != nil {
		t.Fatalf("handleEvent() failed: %v", err)
	}
}

func placedEvent(orderID string) event.OrderPlacedEvent {
	return event.OrderPlacedEvent{
		OrderEventMetadata: event.OrderEventMetadata{
			EventType:   event.EventOrderPlaced,
			OrderID:     orderID,
			DisplayCode: "23",
			OrderType:   ordertype.Types.DineIn.Code(),
		},
		Covers:  2,
		Courses: []int{1, 2},
		Items: []event.OrderItemPayload{
			{Name: "Minestrone", Quantity: 1, Course: 1},
			{
				Name: "Branzino", Quantity: 2, Course: 2,
				Instructions: []event.InstructionPayload{{Type: "removal", Text: "no capers"}},
			},
		},
	}
}

func TestNewOrderSubscriber(t *testing.T) {
	s := NewOrderSubscriber(&MockSubscriber{}, expo.New(expo.Options{}, nil, nil), nil, nil, nil)
	if s == nil {
		t.Error("NewOrderSubscriber() returned nil")
	}
}

func TestOrderSubscriberStart(t *testing.T) {
	tests := []struct {
		name          string
		subscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
		wantErr       bool
	}{
		{
			name: "success",
			subscribeFunc: func(ctx context.Context, topic string, handler events.HandlerFunc) error {
				if topic != event.OrderTicketsTopic {
					t.Errorf("Subscribe topic = %v, want %v", topic, event.OrderTicketsTopic)
				}
				return nil
			},
			wantErr: false,
		},
		{
			name: "subscribeError",
			subscribeFunc: func(ctx context.Context, topic string, handler events.HandlerFunc) error {
				return errors.New("subscription failed")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subscriber := &MockSubscriber{SubscribeFunc: tt.subscribeFunc}
			s := NewOrderSubscriber(subscriber, expo.New(expo.Options{}, nil, nil), NewMockTicketRepo(), NewMockPublisher(), apt.NewNoopLogger())
			err := s.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderSubscriberStartWithoutTransport(t *testing.T) {
	s := NewOrderSubscriber(nil, expo.New(expo.Options{}, nil, nil), nil, nil, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() without a subscriber should fail")
	}
}

func TestHandleOrderPlaced(t *testing.T) {
	f := newSubscriberFixture()
	orderID := uuid.New()

	f.handle(t, placedEvent(orderID.String()))

	ticket, err := f.engine.Ticket(orderID)
	if err != nil {
		t.Fatalf("ticket for order not on board: %v", err)
	}
	if ticket.ID != orderID {
		t.Errorf("ticket id = %v, want the order id %v", ticket.ID, orderID)
	}
	if ticket.DisplayCode != "23" {
		t.Errorf("display code = %q, want 23", ticket.DisplayCode)
	}
	if len(ticket.Items) != 2 {
		t.Fatalf("ticket has %d items, want 2", len(ticket.Items))
	}
	if len(ticket.Items[1].Instructions) != 1 || ticket.Items[1].Instructions[0].Text != "no capers" {
		t.Errorf("instructions not carried over: %+v", ticket.Items[1].Instructions)
	}
	if _, err := f.repo.FindByID(context.Background(), orderID); err != nil {
		t.Errorf("ticket not persisted: %v", err)
	}
	if len(f.publisher.PublishedEvents) != 1 {
		t.Fatalf("published %d events, want 1", len(f.publisher.PublishedEvents))
	}
	if f.publisher.PublishedEvents[0].Topic != event.ExpoTicketsTopic {
		t.Errorf("published to topic %q, want %q", f.publisher.PublishedEvents[0].Topic, event.ExpoTicketsTopic)
	}
}

func TestHandleOrderPlacedRedelivery(t *testing.T) {
	f := newSubscriberFixture()
	orderID := uuid.New()

	f.handle(t, placedEvent(orderID.String()))
	f.handle(t, placedEvent(orderID.String()))

	if f.engine.Count() != 1 {
		t.Errorf("board has %d tickets after redelivery, want 1", f.engine.Count())
	}
	if len(f.publisher.PublishedEvents) != 1 {
		t.Errorf("published %d events after redelivery, want 1", len(f.publisher.PublishedEvents))
	}
}

func TestHandleOrderPlacedInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*event.OrderPlacedEvent)
	}{
		{
			name:   "badOrderID",
			mutate: func(e *event.OrderPlacedEvent) { e.OrderID = "not-a-uuid" },
		},
		{
			name:   "unknownOrderType",
			mutate: func(e *event.OrderPlacedEvent) { e.OrderType = "submarine" },
		},
		{
			name:   "noItems",
			mutate: func(e *event.OrderPlacedEvent) { e.Items = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriberFixture()
			evt := placedEvent(uuid.New().String())
			tt.mutate(&evt)

			f.handle(t, evt)

			if f.engine.Count() != 0 {
				t.Errorf("board has %d tickets, want 0 after dropping the event", f.engine.Count())
			}
		})
	}
}

func TestHandleOrderItemAdded(t *testing.T) {
	f := newSubscriberFixture()
	orderID := uuid.New()
	f.handle(t, placedEvent(orderID.String()))

	f.handle(t, event.OrderItemAddedEvent{
		OrderEventMetadata: event.OrderEventMetadata{
			EventType: event.EventOrderItemAdded,
			OrderID:   orderID.String(),
		},
		Course: 3,
		Item:   event.OrderItemPayload{Name: "Affogato", Quantity: 1, Course: 3},
	})

	ticket, err := f.engine.Ticket(orderID)
	if err != nil {
		t.Fatalf("ticket missing: %v", err)
	}
	if len(ticket.Items) != 3 {
		t.Fatalf("ticket has %d items, want 3 after the late addition", len(ticket.Items))
	}
	if !ticket.FlaggedForAttention {
		t.Error("ticket not flagged for attention after the late addition")
	}
	if !ticket.HasCourse(3) {
		t.Error("course 3 not added to the ticket")
	}
}

func TestHandleOrderItemAddedUnknownOrder(t *testing.T) {
	f := newSubscriberFixture()

	f.handle(t, event.OrderItemAddedEvent{
		OrderEventMetadata: event.OrderEventMetadata{
			EventType: event.EventOrderItemAdded,
			OrderID:   uuid.New().String(),
		},
		Item: event.OrderItemPayload{Name: "Affogato", Quantity: 1, Course: 1},
	})

	if f.engine.Count() != 0 {
		t.Errorf("board has %d tickets, want 0", f.engine.Count())
	}
}

func TestHandleOrderCancelled(t *testing.T) {
	f := newSubscriberFixture()
	orderID := uuid.New()
	f.handle(t, placedEvent(orderID.String()))

	f.handle(t, event.OrderCancelledEvent{
		OrderEventMetadata: event.OrderEventMetadata{
			EventType: event.EventOrderCancelled,
			OrderID:   orderID.String(),
		},
		Reason: "guest walked out",
	})

	ticket, err := f.engine.Ticket(orderID)
	if err != nil {
		t.Fatalf("ticket missing: %v", err)
	}
	if ticket.Status != ticketstatus.Statuses.Canceled {
		t.Errorf("status = %v, want canceled", ticket.Status)
	}

	if len(f.publisher.PublishedEvents) != 2 {
		t.Fatalf("published %d events, want created plus status change", len(f.publisher.PublishedEvents))
	}
	var change event.TicketStatusChangedEvent
	if err := json.Unmarshal(f.publisher.PublishedEvents[1].Data, &change); err != nil {
		t.Fatalf("decoding status change event: %v", err)
	}
	if change.NewStatus != ticketstatus.Statuses.Canceled.Code() {
		t.Errorf("event new status = %q, want canceled", change.NewStatus)
	}
}

func TestHandleUnknownEventType(t *testing.T) {
	f := newSubscriberFixture()

	f.handle(t, map[string]string{"event_type": "order.evaporated"})

	if f.engine.Count() != 0 {
		t.Errorf("board has %d tickets, want 0", f.engine.Count())
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	f := newSubscriberFixture()

	if err := f.subscriber.handleEvent(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("handleEvent() with garbage payload should not error, got %v", err)
	}
}
