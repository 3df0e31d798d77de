package model

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
)

type index struct {
	Indexes map[string]int
	Unique  bool
}

var collections = map[string][]index{
	PoolCollection: {{Indexes: map[string]int{}}},
	PositionCollection: {
		{Indexes: map[string]int{"pool_id": 1}, Unique: false},
		{Indexes: map[string]int{"account": 1}, Unique: false},
	},
}

// Setup creates the ledger collections and their indexes.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	database := client.Database(cfg.DbName)
	for name, idxs := range collections {
		createCollection(ctx, database, name)
		for _, idx := range idxs {
			createIndex(ctx, database, name, idx)
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and indexes created successfully")
	return client.Disconnect(ctx)
}

func createCollection(ctx context.Context, database *mongo.Database, collectionName string) {
	if err := database.CreateCollection(ctx, collectionName); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("collection", collectionName).
			Msg("Collection might already exist")
		return
	}
	log.Ctx(ctx).Debug().Str("collection", collectionName).Msg("Collection created")
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) {
	if len(idx.Indexes) == 0 {
		return
	}

	indexKeys := make(map[string]interface{}, len(idx.Indexes))
	for field, order := range idx.Indexes {
		indexKeys[field] = order
	}

	indexModel := mongo.IndexModel{
		Keys:    indexKeys,
		Options: options.Index().SetUnique(idx.Unique),
	}
	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("collection", collectionName).
			Msg("Failed to create index")
		return
	}
	log.Ctx(ctx).Debug().Str("collection", collectionName).Msg("Index created")
}
