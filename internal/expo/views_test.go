package expo

import (
	"testing"
	"time"

	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
)

func draftFor(code string, orderType ordertype.Type, covers int) TicketDraft {
	return TicketDraft{
		DisplayCode: code,
		OrderType:   orderType,
		Covers:      covers,
		Courses:     []int{1},
		Items: []ItemDraft{
			{Name: "Margherita", Quantity: 1, Course: 1},
		},
	}
}

func TestFilterTicketsFIFO(t *testing.T) {
	engine, clock := newTestEngine(Options{})

	first := mustCreate(engine, draftFor("1", ordertype.Types.DineIn, 2))
	clock.Advance(time.Minute)
	second := mustCreate(engine, draftFor("2", ordertype.Types.Pickup, 0))
	clock.Advance(time.Minute)
	third := mustCreate(engine, draftFor("3", ordertype.Types.DineIn, 4))

	listed := engine.FilterTickets(ViewFilter{})
	if len(listed) != 3 {
		t.Fatalf("FilterTickets() returned %d tickets, want 3", len(listed))
	}
	wantOrder := []TicketID{first.ID, second.ID, third.ID}
	for i, want := range wantOrder {
		if listed[i].ID != want {
			t.Errorf("position %d: got ticket %s, want %s", i, listed[i].DisplayCode, wantOrder[i])
		}
	}

	dineIn := ordertype.Types.DineIn
	filtered := engine.FilterTickets(ViewFilter{OrderType: &dineIn})
	if len(filtered) != 2 {
		t.Fatalf("dine-in filter returned %d tickets, want 2", len(filtered))
	}
	if filtered[0].ID != first.ID || filtered[1].ID != third.ID {
		t.Errorf("dine-in filter broke placement order: got %s then %s", filtered[0].DisplayCode, filtered[1].DisplayCode)
	}
}

func TestFilterTicketsDefaultExcludesCompleted(t *testing.T) {
	engine, _ := newTestEngine(Options{})

	active := mustCreate(engine, draftFor("1", ordertype.Types.Pickup, 0))
	done := mustCreate(engine, draftFor("2", ordertype.Types.Pickup, 0))
	completeTicket(t, engine, done)

	listed := engine.FilterTickets(ViewFilter{})
	if len(listed) != 1 || listed[0].ID != active.ID {
		t.Fatalf("default listing = %d tickets, want only the active one", len(listed))
	}

	completed := ticketstatus.Statuses.Completed
	history := engine.FilterTickets(ViewFilter{Status: &completed})
	if len(history) != 1 || history[0].ID != done.ID {
		t.Fatalf("completed filter = %d tickets, want only the completed one", len(history))
	}
}

func TestCountsMatchFilteredListings(t *testing.T) {
	engine, _ := newTestEngine(Options{})

	mustCreate(engine, draftFor("1", ordertype.Types.DineIn, 2))
	held := mustCreate(engine, draftFor("2", ordertype.Types.Delivery, 0))
	done := mustCreate(engine, draftFor("3", ordertype.Types.Pickup, 0))

	if _, err := engine.SetStatus(held.ID, ticketstatus.Statuses.Hold); err != nil {
		t.Fatalf("SetStatus(hold) failed: %v", err)
	}
	completeTicket(t, engine, done)

	counts := engine.Counts()
	for _, status := range []ticketstatus.Status{
		ticketstatus.Statuses.New,
		ticketstatus.Statuses.Preparing,
		ticketstatus.Statuses.Ready,
		ticketstatus.Statuses.Hold,
		ticketstatus.Statuses.Canceled,
	} {
		s := status
		listed := engine.FilterTickets(ViewFilter{Status: &s})
		if counts.ByStatus[status.Code()] != len(listed) {
			t.Errorf("ByStatus[%s] = %d, listing has %d", status.Code(), counts.ByStatus[status.Code()], len(listed))
		}
	}
	if counts.Completed != 1 {
		t.Errorf("Completed = %d, want 1", counts.Completed)
	}

	sum := 0
	for _, n := range counts.ByStatus {
		sum += n
	}
	if active := engine.FilterTickets(ViewFilter{}); sum != len(active) {
		t.Errorf("sum of status counts = %d, active listing has %d", sum, len(active))
	}
	if counts.ByType[ordertype.Types.DineIn.Code()] != 1 {
		t.Errorf("ByType[dine-in] = %d, want 1", counts.ByType[ordertype.Types.DineIn.Code()])
	}
	if counts.ByType[ordertype.Types.Pickup.Code()] != 0 {
		t.Errorf("ByType[pickup] = %d, want 0 once the ticket completed", counts.ByType[ordertype.Types.Pickup.Code()])
	}
}

func TestItemsByStatusBuckets(t *testing.T) {
	engine, _ := newTestEngine(Options{})

	cooking := mustCreate(engine, TicketDraft{
		DisplayCode: "1",
		OrderType:   ordertype.Types.DineIn,
		Covers:      2,
		Courses:     []int{1},
		Items: []ItemDraft{
			{Name: "Margherita", Quantity: 2, Course: 1},
			{Name: "Tiramisu", Quantity: 1, Course: 1},
		},
	})
	held := mustCreate(engine, TicketDraft{
		DisplayCode: "2",
		OrderType:   ordertype.Types.Pickup,
		Courses:     []int{1},
		Items: []ItemDraft{
			{Name: "Margherita", Quantity: 1, Course: 1},
		},
	})
	retired := mustCreate(engine, draftFor("3", ordertype.Types.Delivery, 0))

	// One Margherita line reaches ready, the dessert stays earlier.
	if _, err := bumpItemTimes(engine, cooking.ID, cooking.Items[0].ID, 2); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	if _, err := engine.SetStatus(held.ID, ticketstatus.Statuses.Hold); err != nil {
		t.Fatalf("SetStatus(hold) failed: %v", err)
	}
	if _, err := engine.SetStatus(retired.ID, ticketstatus.Statuses.Canceled); err != nil {
		t.Fatalf("SetStatus(canceled) failed: %v", err)
	}

	summary := engine.ItemsByStatus()

	if got := summary[BucketReady]; len(got) != 1 || got[0].Name != "Margherita" || got[0].Quantity != 2 {
		t.Errorf("ready bucket = %+v, want 2x Margherita", got)
	}
	if got := summary[BucketPreparing]; len(got) != 1 || got[0].Name != "Tiramisu" || got[0].Quantity != 1 {
		t.Errorf("preparing bucket = %+v, want 1x Tiramisu", got)
	}
	if got := summary[BucketHold]; len(got) != 1 || got[0].Name != "Margherita" || got[0].Quantity != 1 {
		t.Errorf("hold bucket = %+v, want the held ticket's Margherita", got)
	}
}

func TestItemsByStatusMergesAcrossTickets(t *testing.T) {
	engine, _ := newTestEngine(Options{})

	mustCreate(engine, TicketDraft{
		DisplayCode: "1",
		OrderType:   ordertype.Types.Pickup,
		Courses:     []int{1},
		Items:       []ItemDraft{{Name: "Margherita", Quantity: 2, Course: 1}},
	})
	mustCreate(engine, TicketDraft{
		DisplayCode: "2",
		OrderType:   ordertype.Types.Delivery,
		Courses:     []int{1},
		Items: []ItemDraft{
			{Name: "Margherita", Quantity: 3, Course: 1},
			{Name: "Calzone", Quantity: 1, Course: 1},
		},
	})

	summary := engine.ItemsByStatus()
	lines := summary[BucketPreparing]
	if len(lines) != 2 {
		t.Fatalf("preparing bucket has %d lines, want 2", len(lines))
	}
	// Sorted by name.
	if lines[0].Name != "Calzone" || lines[0].Quantity != 1 {
		t.Errorf("line 0 = %+v, want 1x Calzone", lines[0])
	}
	if lines[1].Name != "Margherita" || lines[1].Quantity != 5 {
		t.Errorf("line 1 = %+v, want 5x Margherita merged across tickets", lines[1])
	}
}

func TestGroupItemsCoursingModes(t *testing.T) {
	engine, _ := newTestEngine(Options{})

	ticket := mustCreate(engine, TicketDraft{
		DisplayCode: "5",
		OrderType:   ordertype.Types.DineIn,
		Covers:      2,
		Courses:     []int{1, 2},
		Items: []ItemDraft{
			{Name: "Bruschetta", Quantity: 1, Course: 1},
			{Name: "Osso Buco", Quantity: 2, Course: 2},
			{Name: "Caprese", Quantity: 1, Course: 1},
		},
	})

	groups := engine.GroupItems(ticket)
	if len(groups) != 2 {
		t.Fatalf("separate coursing produced %d groups, want 2", len(groups))
	}
	if groups[0].Course != 1 || len(groups[0].Items) != 2 {
		t.Errorf("course 1 group = %+v, want Bruschetta and Caprese", groups[0])
	}
	if groups[1].Course != 2 || len(groups[1].Items) != 1 || groups[1].Items[0].Name != "Osso Buco" {
		t.Errorf("course 2 group = %+v, want Osso Buco", groups[1])
	}

	engine.Configure(Options{CoursingMode: CoursingCombined})
	combined := engine.GroupItems(ticket)
	if len(combined) != 1 || len(combined[0].Items) != 3 {
		t.Fatalf("combined coursing = %d groups with %d items, want one group of 3", len(combined), len(combined[0].Items))
	}
}
