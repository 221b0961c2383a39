package mongo

import (
	"context"
	"errors"

	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ruleStore struct {
	coll *mongo.Collection
}

// NewRuleStore initializes a MongoDB-backed rule store. The rule name is
// the document _id, so insert-if-absent falls out of the unique key.
func NewRuleStore(db *mongo.Database, collectionName string) types.RuleStore {
	if collectionName == "" {
		collectionName = "rules"
	}
	return &ruleStore{coll: db.Collection(collectionName)}
}

func (s *ruleStore) Create(ctx context.Context, rule *model.Rule) error {
	_, err := s.coll.InsertOne(ctx, rule)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrExists
	}
	return err
}

func (s *ruleStore) Get(ctx context.Context, name string) (*model.Rule, error) {
	var rule model.Rule
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *ruleStore) Update(ctx context.Context, rule *model.Rule, prevUpdatedAt int64) error {
	filter := bson.M{"_id": rule.Name, "updated_at": prevUpdatedAt}

	result, err := s.coll.ReplaceOne(ctx, filter, rule)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		count, err := s.coll.CountDocuments(ctx, bson.M{"_id": rule.Name})
		if err != nil {
			return err
		}
		if count == 0 {
			return model.ErrNotFound
		}
		return model.ErrPreconditionFailed
	}

	return nil
}

func (s *ruleStore) Delete(ctx context.Context, name string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *ruleStore) List(ctx context.Context) ([]model.Rule, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []model.Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}
