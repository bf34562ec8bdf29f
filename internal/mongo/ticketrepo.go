package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/expoline/expo/internal/expo"
	"github.com/expoline/expo/pkg/enums/instruction"
	"github.com/expoline/expo/pkg/enums/itemstatus"
	"github.com/expoline/expo/pkg/enums/ordertype"
	"github.com/expoline/expo/pkg/enums/ticketstatus"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TicketRepo mirrors the board into MongoDB so it survives a restart. The
// engine stays the source of truth during the session; this store is only
// read back at warm-up.
type TicketRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     apt.Logger
	config     *apt.Config
}

func NewTicketRepo(config *apt.Config, logger apt.Logger) *TicketRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TicketRepo{
		logger: logger,
		config: config,
	}
}

func (r *TicketRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "expo"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection("tickets")

	statusIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, statusIndexModel); err != nil {
		return fmt.Errorf("cannot create status index: %w", err)
	}

	placedIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "placed_at", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, placedIndexModel); err != nil {
		return fmt.Errorf("cannot create placed_at index: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: tickets", mongoURL, dbName)
	return nil
}

func (r *TicketRepo) GetDatabase() *mongo.Database {
	return r.db
}

func (r *TicketRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// Save upserts the ticket document keyed by ticket id.
func (r *TicketRepo) Save(ctx context.Context, t *expo.Ticket) error {
	doc := docFromTicket(t)
	doc.UpdatedAt = time.Now()

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("cannot save ticket: %w", err)
	}
	return nil
}

func (r *TicketRepo) FindByID(ctx context.Context, id expo.TicketID) (*expo.Ticket, error) {
	var doc ticketDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("ticket not found")
		}
		return nil, fmt.Errorf("cannot find ticket: %w", err)
	}
	return ticketFromDoc(&doc)
}

func (r *TicketRepo) List(ctx context.Context) ([]expo.Ticket, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "placed_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ticketDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode tickets: %w", err)
	}

	tickets := make([]expo.Ticket, 0, len(docs))
	for i := range docs {
		t, err := ticketFromDoc(&docs[i])
		if err != nil {
			r.logger.Errorf("Skipping unreadable ticket document %s: %v", docs[i].ID, err)
			continue
		}
		tickets = append(tickets, *t)
	}
	return tickets, nil
}

// ticketDoc is the storage shape; statuses are stored as their string
// codes so documents stay readable in the shell.
type ticketDoc struct {
	ID          uuid.UUID  `bson:"_id"`
	DisplayCode string     `bson:"display_code"`
	OrderType   string     `bson:"order_type"`
	Covers      int        `bson:"covers"`
	Status      string     `bson:"status"`
	Courses     []int      `bson:"courses"`
	Items       []itemDoc  `bson:"items"`
	PlacedAt    time.Time  `bson:"placed_at"`
	StartedAt   *time.Time `bson:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
	Flagged     bool       `bson:"flagged_for_attention"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

type itemDoc struct {
	ID           uuid.UUID        `bson:"_id"`
	Name         string           `bson:"name"`
	Quantity     int              `bson:"quantity"`
	Course       int              `bson:"course"`
	Status       string           `bson:"status"`
	Instructions []instructionDoc `bson:"instructions,omitempty"`
}

type instructionDoc struct {
	Type string `bson:"type"`
	Text string `bson:"text"`
}

func docFromTicket(t *expo.Ticket) *ticketDoc {
	doc := &ticketDoc{
		ID:          t.ID,
		DisplayCode: t.DisplayCode,
		OrderType:   t.OrderType.Code(),
		Covers:      t.Covers,
		Status:      t.Status.Code(),
		Courses:     t.Courses,
		PlacedAt:    t.PlacedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Flagged:     t.FlaggedForAttention,
	}
	for _, item := range t.Items {
		id := itemDoc{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Course:   item.Course,
			Status:   item.Status.Code(),
		}
		for _, ins := range item.Instructions {
			id.Instructions = append(id.Instructions, instructionDoc{
				Type: ins.Type.Code(),
				Text: ins.Text,
			})
		}
		doc.Items = append(doc.Items, id)
	}
	return doc
}

func ticketFromDoc(doc *ticketDoc) (*expo.Ticket, error) {
	status := ticketstatus.ByCode(doc.Status)
	if status == nil {
		return nil, fmt.Errorf("unknown ticket status %q", doc.Status)
	}
	ot := ordertype.ByCode(doc.OrderType)
	if ot == nil {
		return nil, fmt.Errorf("unknown order type %q", doc.OrderType)
	}

	t := &expo.Ticket{
		ID:                  doc.ID,
		DisplayCode:         doc.DisplayCode,
		OrderType:           *ot,
		Covers:              doc.Covers,
		Status:              *status,
		Courses:             doc.Courses,
		PlacedAt:            doc.PlacedAt,
		StartedAt:           doc.StartedAt,
		CompletedAt:         doc.CompletedAt,
		FlaggedForAttention: doc.Flagged,
	}
	for _, id := range doc.Items {
		is := itemstatus.ByCode(id.Status)
		if is == nil {
			return nil, fmt.Errorf("unknown item status %q", id.Status)
		}
		item := &expo.Item{
			ID:       id.ID,
			Name:     id.Name,
			Quantity: id.Quantity,
			Course:   id.Course,
			Status:   *is,
		}
		for _, ins := range id.Instructions {
			if it := instruction.ByCode(ins.Type); it != nil {
				item.Instructions = append(item.Instructions, expo.Instruction{Type: *it, Text: ins.Text})
			}
		}
		t.Items = append(t.Items, item)
	}
	return t, nil
}
