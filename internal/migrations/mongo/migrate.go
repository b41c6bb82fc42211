package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"courtside/internal/migrations/mongo/validators"
)

var (
	CourtsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "active", Value: 1},
		}},
	}

	PricingRulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "court_id", Value: 1},
			{Key: "active", Value: 1},
		}},
	}

	HolidaysIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "active", Value: 1},
		}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "court_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_at", Value: 1},
			{Key: "end_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "start_at", Value: -1},
		}},
	}

	// The TTL monitor is garbage collection only: expiry is always
	// decided at read time against expires_at, so a claim is dead the
	// instant it lapses even if the monitor has not swept it yet.
	SlotClaimsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{
			{Key: "lease_id", Value: 1},
			{Key: "holder_id", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "court_id", Value: 1},
			{Key: "slot_start", Value: 1},
		}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running Courtside Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Courts": {
			Indexes:   CourtsIndexes,
			Validator: validators.CourtValidator,
		},
		"Pricing_rules": {
			Indexes:   PricingRulesIndexes,
			Validator: validators.PricingRuleValidator,
		},
		"Holidays": {
			Indexes:   HolidaysIndexes,
			Validator: validators.HolidayValidator,
		},
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Slot_claims": {
			Indexes:   SlotClaimsIndexes,
			Validator: validators.SlotClaimValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
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
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
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
