package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/ledger"
)

// SavePosition writes the committed position for (pool, account),
// inserting on the account's first stake. Positions are never deleted,
// a fully unstaked position is stored at amount zero.
func (db *Database) SavePosition(ctx context.Context, poolID uint64, account string, pos *ledger.Position) error {
	doc := model.NewPositionDocument(poolID, account, pos)

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	_, err := db.collection(model.PositionCollection).
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetPositions returns every stored position, for the bootstrap load.
func (db *Database) GetPositions(ctx context.Context) ([]ledger.PositionRecord, error) {
	cursor, err := db.collection(model.PositionCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var docs []model.PositionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]ledger.PositionRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.ToRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetPositionsByPool returns the positions of a single pool, ordered by
// account.
func (db *Database) GetPositionsByPool(ctx context.Context, poolID uint64) ([]ledger.PositionRecord, error) {
	cursor, err := db.collection(model.PositionCollection).
		Find(ctx, bson.M{"pool_id": poolID}, options.Find().SetSort(bson.M{"account": 1}))
	if err != nil {
		return nil, err
	}

	var docs []model.PositionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]ledger.PositionRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.ToRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
