package expo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/expoline/expo/pkg/event"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

// Handler exposes the board's command and read surface over HTTP. After a
// successful mutation it mirrors the ticket to the repository and publishes
// a status-change event; both are best-effort and never fail the request.
type Handler struct {
	engine    *Engine
	repo      TicketRepository
	publisher events.Publisher
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
}

func NewHandler(engine *Engine, repo TicketRepository, publisher events.Publisher, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		engine:    engine,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/", h.CreateTicket)
		r.Get("/counts", h.Counts)
		r.Post("/undo", h.Undo)
		r.Get("/{id}", h.GetTicket)
		r.Patch("/{id}/bump", h.BumpTicket)
		r.Patch("/{id}/items/{itemID}/bump", h.BumpItem)
		r.Patch("/{id}/status", h.SetStatus)
		r.Patch("/{id}/acknowledge", h.Acknowledge)
	})
	r.Get("/items/summary", h.ItemSummary)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

// ticketView is a ticket annotated with its current alert classification,
// recomputed on every request because it depends on the clock.
type ticketView struct {
	*Ticket
	Alert Alert `json:"alert"`
}

func (h *Handler) view(t *Ticket) ticketView {
	return ticketView{Ticket: t, Alert: h.engine.AlertFor(t)}
}

type createTicketRequest struct {
	DisplayCode string `json:"display_code"`
	OrderType   string `json:"order_type"`
	Covers      int    `json:"covers"`
	Courses     []int  `json:"courses"`
	Items       []struct {
		Name         string `json:"name"`
		Quantity     int    `json:"quantity"`
		Course       int    `json:"course"`
		Instructions []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"instructions"`
	} `json:"items"`
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTicket")
	defer finish()
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	var payload createTicketRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	draft, err := draftFromRequest(payload)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.engine.CreateTicket(draft)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	h.persist(r.Context(), log, ticket)
	h.publishCreated(r.Context(), ticket)
	apt.Respond(w, http.StatusCreated, h.view(ticket), nil)
}

func draftFromRequest(payload createTicketRequest) (TicketDraft, error) {
	ot := ordertype.ByCode(payload.OrderType)
	if ot == nil {
		return TicketDraft{}, &ValidationError{Field: "order_type", Reason: "unknown order type"}
	}
	draft := TicketDraft{
		DisplayCode: payload.DisplayCode,
		OrderType:   *ot,
		Covers:      payload.Covers,
		Courses:     payload.Courses,
	}
	for _, item := range payload.Items {
		d := ItemDraft{
			Name:     item.Name,
			Quantity: item.Quantity,
			Course:   item.Course,
		}
		for _, ins := range item.Instructions {
			it := instruction.ByCode(ins.Type)
			if it == nil {
				return TicketDraft{}, &ValidationError{Field: "instructions", Reason: "unknown instruction type"}
			}
			d.Instructions = append(d.Instructions, Instruction{Type: *it, Text: ins.Text})
		}
		draft.Items = append(draft.Items, d)
	}
	return draft, nil
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTickets")
	defer finish()

	filter := ViewFilter{}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" && statusStr != "all" {
		status := ticketstatus.ByCode(statusStr)
		if status == nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = status
	}

	if typeStr := r.URL.Query().Get("type"); typeStr != "" && typeStr != "all" {
		ot := ordertype.ByCode(typeStr)
		if ot == nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid type filter")
			return
		}
		filter.OrderType = ot
	}

	tickets := h.engine.FilterTickets(filter)
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, h.view(t))
	}

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"tickets": views,
	}, nil)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTicket")
	defer finish()
	log := h.log(r)

	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	ticket, err := h.engine.Ticket(id)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	apt.Respond(w, http.StatusOK, h.view(ticket), nil)
}

func (h *Handler) BumpTicket(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BumpTicket")
	defer finish()
	log := h.log(r)

	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	previous := h.previousStatus(id)
	ticket, err := h.engine.BumpTicket(id)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	h.persist(r.Context(), log, ticket)
	h.publishStatusChange(r.Context(), ticket, previous)
	apt.Respond(w, http.StatusOK, h.view(ticket), nil)
}

func (h *Handler) BumpItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BumpItem")
	defer finish()
	log := h.log(r)

	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	previous := h.previousStatus(id)
	ticket, err := h.engine.BumpItem(id, itemID)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	h.persist(r.Context(), log, ticket)
	h.publishStatusChange(r.Context(), ticket, previous)
	apt.Respond(w, http.StatusOK, h.view(ticket), nil)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetStatus")
	defer finish()
	log := h.log(r)

	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	status := ticketstatus.ByCode(payload.Status)
	if status == nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	previous := h.previousStatus(id)
	ticket, err := h.engine.SetStatus(id, *status)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	h.persist(r.Context(), log, ticket)
	h.publishStatusChange(r.Context(), ticket, previous)
	apt.Respond(w, http.StatusOK, h.view(ticket), nil)
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Acknowledge")
	defer finish()
	log := h.log(r)

	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	ticket, err := h.engine.Acknowledge(id)
	if err != nil {
		h.respondEngineError(w, log, err)
		return
	}

	h.persist(r.Context(), log, ticket)
	apt.Respond(w, http.StatusOK, h.view(ticket), nil)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Undo")
	defer finish()
	log := h.log(r)

	ticket := h.engine.Undo()
	if ticket == nil {
		// No live undo window; documented silent no-op.
		apt.Respond(w, http.StatusOK, map[string]interface{}{
			"undone": false,
		}, nil)
		return
	}

	h.persist(r.Context(), log, ticket)
	h.publishStatusChange(r.Context(), ticket, ticketstatus.Statuses.Completed)
	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"undone": true,
		"ticket": h.view(ticket),
	}, nil)
}

func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Counts")
	defer finish()

	apt.Respond(w, http.StatusOK, h.engine.Counts(), nil)
}

func (h *Handler) ItemSummary(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ItemSummary")
	defer finish()

	apt.Respond(w, http.StatusOK, h.engine.ItemsByStatus(), nil)
}

func (h *Handler) ticketID(w http.ResponseWriter, r *http.Request) (TicketID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return TicketID{}, false
	}
	return id, true
}

func (h *Handler) respondEngineError(w http.ResponseWriter, log apt.Logger, err error) {
	switch {
	case IsNotFound(err):
		apt.RespondError(w, http.StatusNotFound, err.Error())
	case IsValidation(err):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Errorf("ticket mutation failed: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update ticket")
	}
}

// previousStatus reads the pre-mutation status for the published event.
// Racing mutations can interleave between this read and the mutation; the
// event's previous_status is informational, state itself stays serialized
// inside the engine.
func (h *Handler) previousStatus(id TicketID) ticketstatus.Status {
	t, err := h.engine.Ticket(id)
	if err != nil {
		return ticketstatus.Status{}
	}
	return t.Status
}

func (h *Handler) persist(ctx context.Context, log apt.Logger, t *Ticket) {
	if h.repo == nil {
		return
	}
	if err := h.repo.Save(ctx, t); err != nil {
		log.Errorf("failed to persist ticket %s: %v", t.ID, err)
	}
}

func (h *Handler) publishCreated(ctx context.Context, t *Ticket) {
	if h.publisher == nil {
		return
	}
	eventBytes, _ := json.Marshal(h.engine.CreatedEvent(t))
	if err := h.publisher.Publish(ctx, event.ExpoTicketsTopic, eventBytes); err != nil {
		h.logger.Errorf("Failed to publish ticket.created event: %v", err)
	}
}

func (h *Handler) publishStatusChange(ctx context.Context, t *Ticket, previous ticketstatus.Status) {
	if h.publisher == nil {
		return
	}
	eventBytes, _ := json.Marshal(h.engine.StatusChangedEvent(t, previous))
	if err := h.publisher.Publish(ctx, event.ExpoTicketsTopic, eventBytes); err != nil {
		h.logger.Errorf("Failed to publish status_changed event: %v", err)
	}
}
