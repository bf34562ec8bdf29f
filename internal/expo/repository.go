package expo

import "context"

// TicketRepository mirrors engine state into durable storage so the board
// can be rebuilt after a restart. The engine itself never reads through it;
// it is written to fire-and-forget by the service layer and read once
// during warm-up.
type TicketRepository interface {
	Save(ctx context.Context, t *Ticket) error
	FindByID(ctx context.Context, id TicketID) (*Ticket, error)
	List(ctx context.Context) ([]Ticket, error)
}
