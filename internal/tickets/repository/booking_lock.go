package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	ticketserrors "hospiq/internal/tickets/errors"
	"hospiq/pkg/config"
	"hospiq/pkg/model"
)

const (
	LockCollectionName = "BookingLocks"
)

// BookingLockRepository manages advisory locks held while a booking's
// overlap check and insert run. A TTL index on expires_at reaps locks
// abandoned by crashed processes.
type BookingLockRepository interface {
	Acquire(ctx context.Context, lock *model.BookingLock) error
	Release(ctx context.Context, id string) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lock.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ticketserrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	return nil
}

func (r *mongoBookingLockRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to release booking lock: %w", err)
	}
	return nil
}
