package expo

import (
	"sync"
	"time"
)

// CoursingMode controls how the course-grouped projection lays items out.
// It never affects lifecycle state.
type CoursingMode string

const (
	CoursingSeparate CoursingMode = "separate"
	CoursingCombined CoursingMode = "combined"
)

const (
	DefaultDelayedAfterMinutes = 10
	DefaultLateAfterMinutes    = 20
	DefaultUndoWindow          = 5 * time.Second
)

// Options carries the engine's tunables. Zero values fall back to defaults.
type Options struct {
	DelayedAfterMinutes int
	LateAfterMinutes    int
	UndoWindow          time.Duration
	CoursingMode        CoursingMode
}

func (o Options) withDefaults() Options {
	if o.DelayedAfterMinutes <= 0 {
		o.DelayedAfterMinutes = DefaultDelayedAfterMinutes
	}
	if o.LateAfterMinutes <= 0 {
		o.LateAfterMinutes = DefaultLateAfterMinutes
	}
	if o.UndoWindow <= 0 {
		o.UndoWindow = DefaultUndoWindow
	}
	if o.CoursingMode != CoursingCombined {
		o.CoursingMode = CoursingSeparate
	}
	return o
}

// Engine is the authoritative owner of all ticket state on the board. Every
// mutation goes through its entry points and runs to completion under one
// lock, so the derivation invariants hold at every observable moment even
// with HTTP handlers, event subscribers and the undo timer calling in
// concurrently.
type Engine struct {
	mu sync.RWMutex

	// tickets indexed by ticket_id; order preserves insertion for stable
	// listing. Tickets are never physically deleted during a session.
	tickets map[TicketID]*Ticket
	order   []TicketID

	opts  Options
	clock Clock
	sched Scheduler

	// Single undo slot, last-wins. undoSeq fences stale timer fires.
	undo      *undoSnapshot
	undoTimer Timer
	undoSeq   uint64
}

// New creates an engine. Nil clock or scheduler fall back to the system
// implementations.
func New(opts Options, clock Clock, sched Scheduler) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	if sched == nil {
		sched = systemScheduler{}
	}
	return &Engine{
		tickets: make(map[TicketID]*Ticket),
		opts:    opts.withDefaults(),
		clock:   clock,
		sched:   sched,
	}
}

// Options returns the engine's effective configuration.
func (e *Engine) Options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// Configure replaces the engine tunables. Thresholds apply on the next read;
// the undo window applies to the next completion.
func (e *Engine) Configure(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts.withDefaults()
}

// Load inserts a warmed ticket as-is, used only while rebuilding the board
// at startup from stream replay or the repository. Existing entries with
// the same id are replaced in place, keeping their board position.
func (e *Engine) Load(t *Ticket) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.tickets[t.ID]; !exists {
		e.order = append(e.order, t.ID)
	}
	e.tickets[t.ID] = t.Clone()
}

// Count returns the number of tickets on the board, retired ones included.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tickets)
}
