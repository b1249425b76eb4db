package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospiq/pkg/config"
	"hospiq/pkg/model"
)

const (
	SequenceCollectionName = "TicketSequences"
)

// SequenceRepository hands out per-day ticket numbers. Next is backed by
// a single findOneAndUpdate with $inc and upsert, so two concurrent
// bookings can never observe the same value.
type SequenceRepository interface {
	Next(ctx context.Context, day time.Time) (int, error)
}

type mongoSequenceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSequenceRepository(cfg *config.Config) SequenceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSequenceRepository{
		cfg:        cfg,
		collection: db.Collection(SequenceCollectionName),
	}
}

func (r *mongoSequenceRepository) Next(ctx context.Context, day time.Time) (int, error) {
	if _, ok := ctx.(mongo.SessionContext); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.WriteTimeout)
		defer cancel()
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var seq model.TicketSequence
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": model.SequenceKey(day)},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance ticket sequence: %w", err)
	}

	return seq.Seq, nil
}
