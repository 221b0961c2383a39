package storage

import (
	"context"
	"fmt"

	"github.com/stratusbase/stratus/internal/storage/config"
	mongostore "github.com/stratusbase/stratus/internal/storage/mongo"
	"github.com/stratusbase/stratus/internal/storage/types"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Factory creates and hands out the stores backed by a single MongoDB
// deployment. All configuration is passed in at construction; there is no
// process-wide state.
type Factory interface {
	Rules() types.RuleStore
	Principals() types.PrincipalStore
	Registry() types.Registry
	Close(ctx context.Context) error
}

type factory struct {
	client     *mongo.Client
	rules      types.RuleStore
	principals types.PrincipalStore
	registry   types.Registry
}

// NewFactory connects to MongoDB and wires up the stores.
func NewFactory(ctx context.Context, cfg config.Config) (Factory, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)

	return &factory{
		client:     client,
		rules:      mongostore.NewRuleStore(db, cfg.Rules),
		principals: mongostore.NewPrincipalStore(db, cfg.Principals),
		registry:   mongostore.NewRegistry(db, cfg.Workflows, cfg.Providers, cfg.Collections),
	}, nil
}

func (f *factory) Rules() types.RuleStore           { return f.rules }
func (f *factory) Principals() types.PrincipalStore { return f.principals }
func (f *factory) Registry() types.Registry         { return f.registry }

func (f *factory) Close(ctx context.Context) error {
	if f.client != nil {
		return f.client.Disconnect(ctx)
	}
	return nil
}
