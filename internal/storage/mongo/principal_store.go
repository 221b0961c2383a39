package mongo

import (
	"context"
	"errors"

	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type principalStore struct {
	coll *mongo.Collection
}

// NewPrincipalStore initializes a read-only view over the principals
// provisioned by the identity provider.
func NewPrincipalStore(db *mongo.Database, collectionName string) types.PrincipalStore {
	if collectionName == "" {
		collectionName = "principals"
	}
	return &principalStore{coll: db.Collection(collectionName)}
}

func (s *principalStore) Get(ctx context.Context, id string) (*types.Principal, error) {
	var p types.Principal
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
