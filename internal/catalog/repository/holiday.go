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

const HolidayCollectionName = "Holidays"

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	FindActiveByDate(ctx context.Context, date string) (*model.Holiday, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Holiday, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

type mongoHolidayRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoHolidayRepository(cfg *config.Config) HolidayRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHolidayRepository{
		cfg:        cfg,
		collection: db.Collection(HolidayCollectionName),
	}
}

func (r *mongoHolidayRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHolidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	holiday.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, holiday)
	if err != nil {
		return fmt.Errorf("failed to create holiday: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		holiday.ID = oid.Hex()
	}
	return nil
}

// FindActiveByDate returns the active holiday on a calendar date, or nil
// when the date is an ordinary day. If several active holidays share the
// date, the highest multiplier wins.
func (r *mongoHolidayRepository) FindActiveByDate(ctx context.Context, date string) (*model.Holiday, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"date": date, "active": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "multiplier", Value: -1}})

	var holiday model.Holiday
	err := r.collection.FindOne(ctx, filter, opts).Decode(&holiday)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find holiday: %w", err)
	}
	return &holiday, nil
}

func (r *mongoHolidayRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Holiday, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find holidays: %w", err)
	}
	defer cursor.Close(ctx)

	var holidays []*model.Holiday
	if err = cursor.All(ctx, &holidays); err != nil {
		return nil, fmt.Errorf("failed to decode holidays: %w", err)
	}
	return holidays, nil
}

func (r *mongoHolidayRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count holidays: %w", err)
	}
	return count, nil
}

func (r *mongoHolidayRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalogerrors.ErrNotFound
	}
	return nil
}
