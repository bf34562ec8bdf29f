package expo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/expoline/expo/pkg/event"
	"github.com/google/uuid"
)

// Warmer rebuilds the engine's board at startup, preferring event replay
// from the persistent stream and falling back to the repository.
type Warmer struct {
	engine *Engine
	stream events.StreamConsumer
	repo   TicketRepository
	logger apt.Logger
}

func NewWarmer(engine *Engine, stream events.StreamConsumer, repo TicketRepository, logger apt.Logger) *Warmer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Warmer{
		engine: engine,
		stream: stream,
		repo:   repo,
		logger: logger,
	}
}

// Warm loads tickets into the engine. Stream replay is tried first; if the
// stream is missing or broken the repository takes over. Neither being
// configured leaves the board empty, which is a valid cold start.
func (w *Warmer) Warm(ctx context.Context) error {
	if w.stream != nil {
		if err := w.warmFromStream(ctx); err != nil {
			w.logger.Info("stream replay failed, falling back to repository", "error", err)
		} else {
			return nil
		}
	}

	if w.repo == nil {
		w.logger.Info("neither stream nor repository configured, board starts empty")
		return nil
	}
	return w.warmFromRepo(ctx)
}

func (w *Warmer) warmFromStream(ctx context.Context) (err error) {
	// Stream implementations have panicked on half-configured connections
	// before; surface the panic as an error so Warm falls back to the
	// repository instead of taking an empty replay for a warm board.
	defer func() {
		if r := recover(); r != nil {
			w.logger.Info("stream panic recovered", "panic", r)
			err = fmt.Errorf("stream replay panic: %v", r)
		}
	}()

	w.logger.Info("warming board from event stream")

	messages, err := w.stream.Fetch(ctx, 10000)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		w.applyEvent(msg.Data)
	}

	w.logger.Info("board warmed from stream", "tickets", w.engine.Count())
	return nil
}

// WarmFromRepo loads tickets straight from the repository, bypassing the
// stream. Used after seeding writes to the database without events.
func (w *Warmer) WarmFromRepo(ctx context.Context) error {
	return w.warmFromRepo(ctx)
}

func (w *Warmer) warmFromRepo(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Info("repository panic recovered, board stays empty", "panic", r)
			err = nil
		}
	}()

	w.logger.Info("warming board from repository")

	tickets, dbErr := w.repo.List(ctx)
	if dbErr != nil {
		w.logger.Info("failed to warm board from repository, board stays empty", "error", dbErr)
		return nil
	}

	for i := range tickets {
		w.engine.Load(&tickets[i])
	}

	w.logger.Info("board warmed from repository", "count", len(tickets))
	return nil
}

// applyEvent folds one replayed ticket event into the engine.
func (w *Warmer) applyEvent(data []byte) {
	var base struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		w.logger.Error("failed to unmarshal event type", "error", err)
		return
	}

	switch base.EventType {
	case event.EventTicketCreated:
		w.applyCreated(data)
	case event.EventTicketStatusChanged:
		w.applyStatusChanged(data)
	default:
		// Unknown event types are skipped for forward compatibility.
	}
}

func (w *Warmer) applyCreated(data []byte) {
	var evt event.TicketCreatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		w.logger.Error("failed to unmarshal ticket.created event", "error", err)
		return
	}

	t := ticketFromEvent(evt.TicketEventMetadata, evt.Status, evt.Items)
	if t == nil {
		w.logger.Error("skipping malformed ticket.created event", "ticket_id", evt.TicketID)
		return
	}
	t.Covers = evt.Covers
	t.Courses = append([]int(nil), evt.Courses...)
	t.PlacedAt = evt.PlacedAt
	w.engine.Load(t)
}

func (w *Warmer) applyStatusChanged(data []byte) {
	var evt event.TicketStatusChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		w.logger.Error("failed to unmarshal ticket.status_changed event", "error", err)
		return
	}

	id, err := uuid.Parse(evt.TicketID)
	if err != nil {
		return
	}
	existing, err := w.engine.Ticket(id)
	if err != nil {
		// Status change replayed without its creation event; too little to
		// reconstruct a board entry from.
		return
	}

	if status := ticketstatus.ByCode(evt.NewStatus); status != nil {
		existing.Status = *status
	}
	existing.StartedAt = evt.StartedAt
	existing.CompletedAt = evt.CompletedAt
	for _, payload := range evt.Items {
		itemID, err := uuid.Parse(payload.ItemID)
		if err != nil {
			continue
		}
		if item := existing.Item(itemID); item != nil {
			if s := itemstatus.ByCode(payload.Status); s != nil {
				item.Status = *s
			}
		}
	}
	w.engine.Load(existing)
}

func ticketFromEvent(meta event.TicketEventMetadata, status string, items []event.TicketItemPayload) *Ticket {
	id, err := uuid.Parse(meta.TicketID)
	if err != nil {
		return nil
	}
	st := ticketstatus.ByCode(status)
	ot := ordertype.ByCode(meta.OrderType)
	if st == nil || ot == nil {
		return nil
	}

	t := &Ticket{
		ID:          id,
		DisplayCode: meta.DisplayCode,
		OrderType:   *ot,
		Status:      *st,
		PlacedAt:    meta.OccurredAt,
	}
	for _, payload := range items {
		itemID, err := uuid.Parse(payload.ItemID)
		if err != nil {
			continue
		}
		is := itemstatus.ByCode(payload.Status)
		if is == nil {
			continue
		}
		item := &Item{
			ID:       itemID,
			Name:     payload.Name,
			Quantity: payload.Quantity,
			Course:   payload.Course,
			Status:   *is,
		}
		for _, ins := range payload.Instructions {
			if it := instruction.ByCode(ins.Type); it != nil {
				item.Instructions = append(item.Instructions, Instruction{Type: *it, Text: ins.Text})
			}
		}
		t.Items = append(t.Items, item)
	}
	return t
}
