package repository

import (
	"context"
	"fmt"
	"time"

	bookingerrors "courtside/internal/booking/errors"
	"courtside/pkg/config"
	"courtside/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LeaseCollectionName = "Slot_claims"

// LeaseRepository stores one claim document per hour slot a lease
// covers. The unique _id index on the deterministic slot key is the
// exclusion constraint: two concurrent holds on the same slot resolve
// to one winner at the database, never in application code.
type LeaseRepository interface {
	AcquireSlot(ctx context.Context, claim *model.SlotClaim, now time.Time) error
	DeleteClaim(ctx context.Context, claimID, leaseID string) error
	ReleaseLease(ctx context.Context, leaseID, holderID string) (int64, error)
	FindByLease(ctx context.Context, leaseID string) ([]*model.SlotClaim, error)
	ActiveClaimsInRange(ctx context.Context, courtID string, from, to, now time.Time) ([]*model.SlotClaim, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type mongoLeaseRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLeaseRepository(cfg *config.Config) LeaseRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeaseRepository{
		cfg:        cfg,
		collection: db.Collection(LeaseCollectionName),
	}
}

func (r *mongoLeaseRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// AcquireSlot claims one hour slot with a single conditional upsert.
// The filter matches only a claim we may overwrite: our own, or one
// whose expiry has passed. When the slot is held by another unexpired
// claim the filter matches nothing and the upsert attempts an insert,
// which the unique _id index rejects with a duplicate key error.
func (r *mongoLeaseRepository) AcquireSlot(ctx context.Context, claim *model.SlotClaim, now time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": claim.ID,
		"$or": []bson.M{
			{"holder_id": claim.HolderID},
			{"expires_at": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"lease_id":   claim.LeaseID,
			"court_id":   claim.CourtID,
			"slot_start": claim.SlotStart,
			"date":       claim.Date,
			"start":      claim.Start,
			"end":        claim.End,
			"holder_id":  claim.HolderID,
			"expires_at": claim.ExpiresAt,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingerrors.ErrClaimConflict
		}
		return fmt.Errorf("failed to acquire slot claim: %w", err)
	}
	return nil
}

// DeleteClaim removes a single claim, but only if it still belongs to
// the given lease. Used to roll back a partially acquired window.
func (r *mongoLeaseRepository) DeleteClaim(ctx context.Context, claimID, leaseID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": claimID, "lease_id": leaseID})
	if err != nil {
		return fmt.Errorf("failed to delete slot claim: %w", err)
	}
	return nil
}

// ReleaseLease removes every claim of a lease. Deleting zero documents
// is not an error; release is idempotent and expired claims may already
// have been taken over.
func (r *mongoLeaseRepository) ReleaseLease(ctx context.Context, leaseID, holderID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"lease_id": leaseID, "holder_id": holderID})
	if err != nil {
		return 0, fmt.Errorf("failed to release lease: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *mongoLeaseRepository) FindByLease(ctx context.Context, leaseID string) ([]*model.SlotClaim, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"lease_id": leaseID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find lease claims: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []*model.SlotClaim
	if err = cursor.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode lease claims: %w", err)
	}
	return claims, nil
}

// ActiveClaimsInRange returns unexpired claims touching [from, to) on a
// court. Expiry is decided against the supplied instant; expired
// documents are invisible here even before the TTL monitor removes them.
func (r *mongoLeaseRepository) ActiveClaimsInRange(ctx context.Context, courtID string, from, to, now time.Time) ([]*model.SlotClaim, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"court_id":   courtID,
		"slot_start": bson.M{"$gte": from, "$lt": to},
		"expires_at": bson.M{"$gt": now},
	}

	opts := options.Find().SetSort(bson.D{{Key: "slot_start", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slot claims: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []*model.SlotClaim
	if err = cursor.All(ctx, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode slot claims: %w", err)
	}
	return claims, nil
}

// PurgeExpired removes lapsed claims eagerly. The TTL index does the
// same in the background; this exists for operational cleanup.
func (r *mongoLeaseRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired claims: %w", err)
	}
	return result.DeletedCount, nil
}
