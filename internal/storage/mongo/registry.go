package mongo

import (
	"context"

	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type registry struct {
	workflows   *mongo.Collection
	providers   *mongo.Collection
	collections *mongo.Collection
}

// NewRegistry initializes existence checks against the workflow, provider
// and collection records owned by sibling services.
func NewRegistry(db *mongo.Database, workflows, providers, collections string) types.Registry {
	return &registry{
		workflows:   db.Collection(workflows),
		providers:   db.Collection(providers),
		collections: db.Collection(collections),
	}
}

func (r *registry) WorkflowExists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, r.workflows, bson.M{"_id": name})
}

func (r *registry) ProviderExists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, r.providers, bson.M{"_id": name})
}

func (r *registry) CollectionExists(ctx context.Context, ref model.CollectionRef) (bool, error) {
	return exists(ctx, r.collections, bson.M{"name": ref.Name, "version": ref.Version})
}

func exists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	count, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
