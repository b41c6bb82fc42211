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

const RuleCollectionName = "Pricing_rules"

type RuleRepository interface {
	Create(ctx context.Context, rule *model.PricingRule) error
	FindByID(ctx context.Context, id string) (*model.PricingRule, error)
	FindByCourt(ctx context.Context, courtID string, activeOnly bool) ([]*model.PricingRule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type mongoRuleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRuleRepository(cfg *config.Config) RuleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRuleRepository{
		cfg:        cfg,
		collection: db.Collection(RuleCollectionName),
	}
}

func (r *mongoRuleRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRuleRepository) Create(ctx context.Context, rule *model.PricingRule) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rule.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRuleRepository) FindByID(ctx context.Context, id string) (*model.PricingRule, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var rule model.PricingRule
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pricing rule: %w", err)
	}
	return &rule, nil
}

func (r *mongoRuleRepository) FindByCourt(ctx context.Context, courtID string, activeOnly bool) ([]*model.PricingRule, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"court_id": courtID}
	if activeOnly {
		filter["active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pricing rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []*model.PricingRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode pricing rules: %w", err)
	}
	return rules, nil
}

func (r *mongoRuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalogerrors.ErrNotFound
	}
	return nil
}

func (r *mongoRuleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalogerrors.ErrNotFound
	}
	return nil
}
