package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
)

// SavePool writes the committed pool record, inserting on first save.
func (db *Database) SavePool(ctx context.Context, pool *ledger.Pool) error {
	doc := model.NewPoolDocument(pool)

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	_, err := db.collection(model.PoolCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetPool fetches a single pool by id.
func (db *Database) GetPool(ctx context.Context, poolID uint64) (*ledger.Pool, error) {
	var doc model.PoolDocument
	err := db.collection(model.PoolCollection).
		FindOne(ctx, bson.M{"_id": poolID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &NotFoundError{
				Key:     fmt.Sprintf("%d", poolID),
				Message: "pool not found",
			}
		}
		return nil, err
	}
	return doc.ToPool()
}

// GetPools returns all pools ordered by id, for the bootstrap load.
func (db *Database) GetPools(ctx context.Context) ([]*ledger.Pool, error) {
	cursor, err := db.collection(model.PoolCollection).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}

	var docs []model.PoolDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	pools := make([]*ledger.Pool, 0, len(docs))
	for _, doc := range docs {
		pool, err := doc.ToPool()
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}
