package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogerrors "courtside/internal/catalog/errors"
	"courtside/pkg/config"
	"courtside/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CourtCollectionName = "Courts"

type CourtRepository interface {
	Create(ctx context.Context, court *model.Court) error
	FindByID(ctx context.Context, id string) (*model.Court, error)
	FindAll(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Court, error)
	Count(ctx context.Context, ownerID string) (int64, error)
	Update(ctx context.Context, id string, court *model.Court) error
}

type mongoCourtRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCourtRepository(cfg *config.Config) CourtRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCourtRepository{
		cfg:        cfg,
		collection: db.Collection(CourtCollectionName),
	}
}

func (r *mongoCourtRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoCourtRepository) Create(ctx context.Context, court *model.Court) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	court.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	court.UpdatedAt = court.CreatedAt
	result, err := r.collection.InsertOne(ctx, court)
	if err != nil {
		return fmt.Errorf("failed to create court: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		court.ID = oid.Hex()
	}
	return nil
}

func (r *mongoCourtRepository) FindByID(ctx context.Context, id string) (*model.Court, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var court model.Court
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&court)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find court: %w", err)
	}
	return &court, nil
}

func (r *mongoCourtRepository) FindAll(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Court, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, ownerFilter(ownerID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find courts: %w", err)
	}
	defer cursor.Close(ctx)

	var courts []*model.Court
	if err = cursor.All(ctx, &courts); err != nil {
		return nil, fmt.Errorf("failed to decode courts: %w", err)
	}
	return courts, nil
}

func (r *mongoCourtRepository) Count(ctx context.Context, ownerID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, ownerFilter(ownerID))
	if err != nil {
		return 0, fmt.Errorf("failed to count courts: %w", err)
	}
	return count, nil
}

func ownerFilter(ownerID string) bson.M {
	if ownerID == "" {
		return bson.M{}
	}
	return bson.M{"owner_id": ownerID}
}

func (r *mongoCourtRepository) Update(ctx context.Context, id string, court *model.Court) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":             court.Name,
			"base_price_cents": court.BasePriceCents,
			"open_hour":        court.OpenHour,
			"close_hour":       court.CloseHour,
			"status":           court.Status,
			"active":           court.Active,
			"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update court: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalogerrors.ErrNotFound
	}
	return nil
}
