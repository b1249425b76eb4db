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

	hospitalserrors "hospiq/internal/hospitals/errors"
	"hospiq/pkg/config"
	"hospiq/pkg/model"
)

const (
	CollectionName = "Hospitals"
)

type HospitalRepository interface {
	Create(ctx context.Context, hospital *model.Hospital) error
	FindByID(ctx context.Context, id string) (*model.Hospital, error)
	FindAll(ctx context.Context, filter *model.HospitalFilter, limit int, offset int64) ([]*model.Hospital, error)
	Count(ctx context.Context, filter *model.HospitalFilter) (int64, error)
	Update(ctx context.Context, id string, hospital *model.Hospital) error
	UpdateCounter(ctx context.Context, hospitalID, counterID string, counter *model.Counter) error
	// IncrementCounterQueue adjusts a counter's live queue length by
	// delta using a single atomic $inc. Negative deltas never drive the
	// length below zero.
	IncrementCounterQueue(ctx context.Context, hospitalID, counterID string, delta int) error
}

type mongoHospitalRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoHospitalRepository(cfg *config.Config) HospitalRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHospitalRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction; SessionContext cannot be wrapped without breaking
// transaction semantics.
func (r *mongoHospitalRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHospitalRepository) Create(ctx context.Context, hospital *model.Hospital) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	hospital.CreatedAt = now
	hospital.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, hospital)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return hospitalserrors.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create hospital: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		hospital.ID = oid.Hex()
	}
	return nil
}

func (r *mongoHospitalRepository) FindByID(ctx context.Context, id string) (*model.Hospital, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", hospitalserrors.ErrInvalidID, id)
	}

	var hospital model.Hospital
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&hospital)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hospitalserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find hospital: %w", err)
	}

	return &hospital, nil
}

func (r *mongoHospitalRepository) buildFilter(filter *model.HospitalFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}

	if filter.City != "" {
		query["city"] = filter.City
	}
	if filter.CounterType != "" {
		query["counters"] = bson.M{"$elemMatch": bson.M{
			"type":      filter.CounterType,
			"is_active": true,
		}}
	}
	if filter.OnlyActive {
		query["is_active"] = true
		query["is_verified"] = true
	}
	return query
}

func (r *mongoHospitalRepository) FindAll(ctx context.Context, filter *model.HospitalFilter, limit int, offset int64) ([]*model.Hospital, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, r.buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*model.Hospital
	if err = cursor.All(ctx, &hospitals); err != nil {
		return nil, fmt.Errorf("failed to decode hospitals: %w", err)
	}

	return hospitals, nil
}

func (r *mongoHospitalRepository) Count(ctx context.Context, filter *model.HospitalFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, r.buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count hospitals: %w", err)
	}
	return count, nil
}

func (r *mongoHospitalRepository) Update(ctx context.Context, id string, hospital *model.Hospital) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", hospitalserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":         hospital.Name,
			"address":      hospital.Address,
			"city":         hospital.City,
			"phone":        hospital.Phone,
			"is_active":    hospital.IsActive,
			"is_verified":  hospital.IsVerified,
			"bed_capacity": hospital.BedCapacity,
			"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update hospital: %w", err)
	}
	if result.MatchedCount == 0 {
		return hospitalserrors.ErrNotFound
	}

	return nil
}

func (r *mongoHospitalRepository) UpdateCounter(ctx context.Context, hospitalID, counterID string, counter *model.Counter) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(hospitalID)
	if err != nil {
		return fmt.Errorf("%w: %s", hospitalserrors.ErrInvalidID, hospitalID)
	}

	update := bson.M{
		"$set": bson.M{
			"counters.$[c].name":                  counter.Name,
			"counters.$[c].average_service_time":  counter.AverageServiceTime,
			"counters.$[c].working_hours":         counter.WorkingHours,
			"counters.$[c].max_capacity_per_hour": counter.MaxCapacityPerHour,
			"counters.$[c].is_active":             counter.IsActive,
			"updated_at":                          time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{"c._id": counterID}},
	})

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update counter: %w", err)
	}
	if result.MatchedCount == 0 {
		return hospitalserrors.ErrNotFound
	}
	if result.ModifiedCount == 0 {
		return hospitalserrors.ErrCounterNotFound
	}

	return nil
}

func (r *mongoHospitalRepository) IncrementCounterQueue(ctx context.Context, hospitalID, counterID string, delta int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(hospitalID)
	if err != nil {
		return fmt.Errorf("%w: %s", hospitalserrors.ErrInvalidID, hospitalID)
	}

	arrayFilter := bson.M{"c._id": counterID}
	if delta < 0 {
		// Floor at zero: only match counters with something to decrement.
		arrayFilter["c.current_queue_length"] = bson.M{"$gte": -delta}
	}

	update := bson.M{
		"$inc": bson.M{"counters.$[c].current_queue_length": delta},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{arrayFilter},
	})

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to adjust counter queue length: %w", err)
	}
	if result.MatchedCount == 0 {
		return hospitalserrors.ErrNotFound
	}
	// A decrement on an already-empty queue modifies nothing; that is
	// fine, the floor held.

	return nil
}
