package expo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"go.mongodb.org/mongo-driver/mongo"
)

const demoSeedApplication = "expo_demo"

// ApplyDemoSeeds populates a realistic demo board: a mix of fresh, fired
// and held tickets so the display has something to show out of the box.
// Seeds are tracked in Mongo so reruns are no-ops.
func ApplyDemoSeeds(ctx context.Context, engine *Engine, repo TicketRepository, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return errors.New("database is required for demo seeding")
	}

	tracker := seed.NewMongoTracker(db)
	seeds := []seed.Seed{
		{
			ID:          "2026-08-30_demo_board_v1",
			Description: "Create demo tickets for the expo board",
			Run: func(ctx context.Context) error {
				return seedDemoBoard(ctx, engine, repo, logger)
			},
		},
	}

	logger.Info("Applying demo board seeds")
	if err := seed.Apply(ctx, tracker, seeds, demoSeedApplication); err != nil {
		return err
	}
	logger.Info("Demo board seeds applied successfully")
	return nil
}

func seedDemoBoard(ctx context.Context, engine *Engine, repo TicketRepository, logger apt.Logger) error {
	drafts := demoDrafts()

	for _, draft := range drafts {
		ticket, err := engine.CreateTicket(draft)
		if err != nil {
			return fmt.Errorf("create demo ticket %s: %w", draft.DisplayCode, err)
		}
		if repo != nil {
			if err := repo.Save(ctx, ticket); err != nil {
				logger.Errorf("Failed to persist demo ticket %s: %v", ticket.ID, err)
			}
		}
	}

	// Fire the first demo ticket so the board opens with visible progress.
	tickets := engine.Tickets()
	if len(tickets) > 0 && len(tickets[0].Items) > 0 {
		if _, err := engine.BumpItem(tickets[0].ID, tickets[0].Items[0].ID); err != nil {
			return fmt.Errorf("bump demo ticket: %w", err)
		}
	}

	logger.Info("Seeded demo board", "tickets", len(drafts))
	return nil
}

func demoDrafts() []TicketDraft {
	return []TicketDraft{
		{
			DisplayCode: "41",
			OrderType:   ordertype.Types.DineIn,
			Covers:      2,
			Courses:     []int{1, 2},
			Items: []ItemDraft{
				{Name: "Burrata", Quantity: 1, Course: 1},
				{Name: "Rigatoni al Ragu", Quantity: 2, Course: 2, Instructions: []Instruction{
					{Type: instruction.Types.Removal, Text: "no parmesan"},
				}},
			},
		},
		{
			DisplayCode: "42",
			OrderType:   ordertype.Types.Pickup,
			Covers:      0,
			Courses:     []int{1},
			Items: []ItemDraft{
				{Name: "Margherita", Quantity: 1, Course: 1},
				{Name: "Tiramisu", Quantity: 1, Course: 1, Instructions: []Instruction{
					{Type: instruction.Types.Warning, Text: "contains alcohol"},
				}},
			},
		},
		{
			DisplayCode: "43",
			OrderType:   ordertype.Types.Delivery,
			Covers:      0,
			Courses:     []int{1},
			Items: []ItemDraft{
				{Name: "Margherita", Quantity: 2, Course: 1, Instructions: []Instruction{
					{Type: instruction.Types.Addition, Text: "extra basil"},
				}},
			},
		},
	}
}
