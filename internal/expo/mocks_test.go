package expo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/google/uuid"
)

// fakeClock is a manual clock that also acts as the scheduler, so tests
// can fast-forward virtual time and fire due timers deterministically.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every unstopped timer that has
// come due, in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	var rest []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	already := t.stopped
	t.stopped = true
	return !already
}

func newTestEngine(opts Options) (*Engine, *fakeClock) {
	clock := newFakeClock()
	return New(opts, clock, clock), clock
}

func twoItemDraft() TicketDraft {
	return TicketDraft{
		DisplayCode: "17",
		OrderType:   ordertype.Types.DineIn,
		Covers:      2,
		Courses:     []int{1},
		Items: []ItemDraft{
			{Name: "Carbonara", Quantity: 1, Course: 1},
			{Name: "Caesar Salad", Quantity: 1, Course: 1},
		},
	}
}

func mustCreate(e *Engine, draft TicketDraft) *Ticket {
	t, err := e.CreateTicket(draft)
	if err != nil {
		panic(err)
	}
	return t
}

// bumpItemTimes advances one item n steps.
func bumpItemTimes(e *Engine, ticketID TicketID, itemID ItemID, n int) (*Ticket, error) {
	var t *Ticket
	var err error
	for i := 0; i < n; i++ {
		t, err = e.BumpItem(ticketID, itemID)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MockTicketRepository is a test mock for TicketRepository.
type MockTicketRepository struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*Ticket

	SaveFunc     func(ctx context.Context, t *Ticket) error
	FindByIDFunc func(ctx context.Context, id TicketID) (*Ticket, error)
	ListFunc     func(ctx context.Context) ([]Ticket, error)
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{
		tickets: make(map[uuid.UUID]*Ticket),
	}
}

func (m *MockTicketRepository) Save(ctx context.Context, t *Ticket) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t.Clone()
	return nil
}

func (m *MockTicketRepository) FindByID(ctx context.Context, id TicketID) (*Ticket, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, exists := m.tickets[id]
	if !exists {
		return nil, errors.New("ticket not found")
	}
	return t.Clone(), nil
}

func (m *MockTicketRepository) List(ctx context.Context) ([]Ticket, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		result = append(result, *t.Clone())
	}
	return result, nil
}

func (m *MockTicketRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// MockPublisher records published events.
type MockPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	topics   []string

	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockPublisher) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.messages...)
}
