package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hospiq/internal/migrations/mongo/validators"
)

var (
	HospitalsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "city", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "counters.type", Value: 1}}},
	}

	TicketsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticket_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// queue-position counts: counter slice of a day, filtered by status
		{Keys: bson.D{
			{Key: "hospital_id", Value: 1},
			{Key: "counter_id", Value: 1},
			{Key: "appointment_date_time", Value: 1},
			{Key: "status", Value: 1},
		}},
		// per-user listings and overlap checks
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "appointment_date_time", Value: 1},
			{Key: "status", Value: 1},
		}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running hospiq Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Hospitals": {
			Indexes:   HospitalsIndexes,
			Validator: validators.HospitalValidator,
		},
		"Tickets": {
			Indexes:   TicketsIndexes,
			Validator: validators.TicketValidator,
		},
		"BookingLocks": {
			Indexes: BookingLocksIndexes,
		},
		"TicketSequences": {},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
