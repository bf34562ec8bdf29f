package expo

import (
	"sort"

	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
)

// ViewFilter narrows the board listing. A nil Status means every active
// status: completed tickets only show up when asked for explicitly. A nil
// OrderType means every channel.
type ViewFilter struct {
	Status    *ticketstatus.Status
	OrderType *ordertype.Type
}

// FilterTickets returns copies of matching tickets sorted oldest-placed
// first. FIFO is the fairness rule of the board: whoever has waited longest
// is always at the front of any filtered view.
func (e *Engine) FilterTickets(f ViewFilter) []*Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*Ticket
	for _, id := range e.order {
		t := e.tickets[id]
		if !matches(t, f) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlacedAt.Before(out[j].PlacedAt)
	})
	return out
}

func matches(t *Ticket, f ViewFilter) bool {
	if f.Status == nil {
		if t.Status == ticketstatus.Statuses.Completed {
			return false
		}
	} else if t.Status != *f.Status {
		return false
	}
	if f.OrderType != nil && t.OrderType != *f.OrderType {
		return false
	}
	return true
}

// BoardCounts aggregates the board by status and order type. Completed
// tickets sit outside the per-status and per-type maps under their own
// counter, mirroring the listing's default exclusion.
type BoardCounts struct {
	ByStatus  map[string]int `json:"by_status"`
	ByType    map[string]int `json:"by_type"`
	Completed int            `json:"completed"`
}

// Counts computes the aggregate board counts. For every status s,
// ByStatus[s] equals the length of the corresponding filtered listing.
func (e *Engine) Counts() BoardCounts {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := BoardCounts{
		ByStatus: make(map[string]int),
		ByType:   make(map[string]int),
	}
	for _, t := range e.tickets {
		if t.Status == ticketstatus.Statuses.Completed {
			counts.Completed++
			continue
		}
		counts.ByStatus[t.Status.Code()]++
		counts.ByType[t.OrderType.Code()]++
	}
	return counts
}

// ItemBucket is one of the three columns of the aggregate kitchen-load
// view.
type ItemBucket string

const (
	BucketPreparing ItemBucket = "preparing"
	BucketHold      ItemBucket = "hold"
	BucketReady     ItemBucket = "ready"
)

// ItemSummaryLine is one dish with quantities merged across tickets.
type ItemSummaryLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ItemSummary is the flattened cross-ticket items view, bucket by bucket,
// lines sorted by name.
type ItemSummary map[ItemBucket][]ItemSummaryLine

// ItemsByStatus flattens all items across non-retired tickets into the
// three load buckets. Items on a held ticket all land in the hold bucket
// whatever their own status; elsewhere the item status decides: ready goes
// to ready, anything earlier to preparing. Completed items have left the
// kitchen and are not load.
func (e *Engine) ItemsByStatus() ItemSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	totals := map[ItemBucket]map[string]int{
		BucketPreparing: {},
		BucketHold:      {},
		BucketReady:     {},
	}

	for _, t := range e.tickets {
		switch t.Status {
		case ticketstatus.Statuses.Completed, ticketstatus.Statuses.Canceled:
			continue
		}
		for _, item := range t.Items {
			if item.Status == itemstatus.Statuses.Completed {
				continue
			}
			bucket := BucketPreparing
			switch {
			case t.Status == ticketstatus.Statuses.Hold:
				bucket = BucketHold
			case item.Status == itemstatus.Statuses.Ready:
				bucket = BucketReady
			}
			totals[bucket][item.Name] += item.Quantity
		}
	}

	summary := make(ItemSummary, len(totals))
	for bucket, byName := range totals {
		lines := make([]ItemSummaryLine, 0, len(byName))
		for name, qty := range byName {
			lines = append(lines, ItemSummaryLine{Name: name, Quantity: qty})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
		summary[bucket] = lines
	}
	return summary
}

// CourseGroup is a presentation grouping of a ticket's items. In separate
// coursing each course gets its own group in ticket course order; combined
// coursing flattens everything into one group. State never depends on it.
type CourseGroup struct {
	Course int     `json:"course"`
	Items  []*Item `json:"items"`
}

// GroupItems lays a ticket's items out according to the coursing mode.
func (e *Engine) GroupItems(t *Ticket) []CourseGroup {
	e.mu.RLock()
	mode := e.opts.CoursingMode
	e.mu.RUnlock()

	if mode == CoursingCombined {
		return []CourseGroup{{Course: 0, Items: append([]*Item(nil), t.Items...)}}
	}

	groups := make([]CourseGroup, 0, len(t.Courses))
	for _, course := range t.Courses {
		g := CourseGroup{Course: course}
		for _, item := range t.Items {
			if item.Course == course {
				g.Items = append(g.Items, item)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
