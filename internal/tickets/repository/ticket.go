package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ticketserrors "hospiq/internal/tickets/errors"
	"hospiq/pkg/config"
	mongotx "hospiq/pkg/db/mongo"
	"hospiq/pkg/model"
)

const (
	CollectionName = "Tickets"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	FindByID(ctx context.Context, id string) (*model.Ticket, error)
	FindByUser(ctx context.Context, userID string, filter *model.TicketFilter, limit int, offset int64) ([]*model.Ticket, error)
	CountByUser(ctx context.Context, userID string, filter *model.TicketFilter) (int64, error)
	// FindActiveOverlap returns the user's active tickets whose
	// appointment falls within the overlap window around t.
	FindActiveOverlap(ctx context.Context, userID string, t time.Time) ([]*model.Ticket, error)
	// CountActiveSameDay counts all active tickets at the counter on the
	// calendar day of t. The caller derives the queue position from it.
	CountActiveSameDay(ctx context.Context, hospitalID, counterID string, t time.Time) (int64, error)
	Update(ctx context.Context, id string, ticket *model.Ticket) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoTicketRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoTicketRepository(cfg *config.Config) TicketRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTicketRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoTicketRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, ticket)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		ticket.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTicketRepository) FindByID(ctx context.Context, id string) (*model.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ticketserrors.ErrInvalidID, id)
	}

	var ticket model.Ticket
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ticketserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	return &ticket, nil
}

func (r *mongoTicketRepository) buildUserFilter(userID string, filter *model.TicketFilter) bson.M {
	query := bson.M{"user_id": userID}
	if filter == nil {
		return query
	}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.HospitalID != "" {
		query["hospital_id"] = filter.HospitalID
	}
	if filter.From != nil || filter.To != nil {
		window := bson.M{}
		if filter.From != nil {
			window["$gte"] = *filter.From
		}
		if filter.To != nil {
			window["$lte"] = *filter.To
		}
		query["appointment_date_time"] = window
	}
	return query
}

func (r *mongoTicketRepository) FindByUser(ctx context.Context, userID string, filter *model.TicketFilter, limit int, offset int64) ([]*model.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "appointment_date_time", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildUserFilter(userID, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []*model.Ticket
	if err = cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}

	return tickets, nil
}

func (r *mongoTicketRepository) CountByUser(ctx context.Context, userID string, filter *model.TicketFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildUserFilter(userID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

func (r *mongoTicketRepository) FindActiveOverlap(ctx context.Context, userID string, t time.Time) ([]*model.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{
		"user_id": userID,
		"status":  bson.M{"$in": model.ActiveStatuses()},
		"appointment_date_time": bson.M{
			"$gt": t.Add(-model.OverlapWindow),
			"$lt": t.Add(model.OverlapWindow),
		},
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []*model.Ticket
	if err = cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping tickets: %w", err)
	}

	return tickets, nil
}

func (r *mongoTicketRepository) CountActiveSameDay(ctx context.Context, hospitalID, counterID string, t time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := bson.M{
		"hospital_id": hospitalID,
		"counter_id":  counterID,
		"status":      bson.M{"$in": model.ActiveStatuses()},
		"appointment_date_time": bson.M{
			"$gte": dayStart,
			"$lt":  dayEnd,
		},
	}

	count, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue position: %w", err)
	}
	return count, nil
}

func (r *mongoTicketRepository) Update(ctx context.Context, id string, ticket *model.Ticket) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ticketserrors.ErrInvalidID, id)
	}

	replacement := *ticket
	replacement.ID = "" // _id is immutable

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objectID}, &replacement)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if result.MatchedCount == 0 {
		return ticketserrors.ErrNotFound
	}

	return nil
}

func (r *mongoTicketRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
