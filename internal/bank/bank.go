// Package bank implements the asset transfer collaborator on top of
// Mongo-held custody balances. It tracks the free (non-custodial)
// balance of every (asset, account) pair; TransferIn debits an account
// into custody and TransferOut credits an account out of custody.
package bank

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
)

const BalanceCollection = "balances"

// BalanceDocument is one account's free balance of one asset.
type BalanceDocument struct {
	ID      string `bson:"_id"`
	Asset   string `bson:"asset"`
	Account string `bson:"account"`
	Balance int64  `bson:"balance"`
}

func BalanceID(asset, account string) string {
	return fmt.Sprintf("%s:%s", asset, account)
}

type Bank struct {
	dbName string
	client *mongo.Client
}

func New(ctx context.Context, cfg config.DbConfig) (*Bank, error) {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, err
	}

	return &Bank{
		dbName: cfg.DbName,
		client: client,
	}, nil
}

func (b *Bank) collection() *mongo.Collection {
	return b.client.Database(b.dbName).Collection(BalanceCollection)
}

// TransferIn moves amount of asset from the account's free balance into
// custody. Fails when the account does not hold enough of the asset;
// the conditional update keeps balances from ever going negative.
func (b *Bank) TransferIn(ctx context.Context, asset, from string, amount sdkmath.Int) error {
	value, err := toInt64(amount)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":     BalanceID(asset, from),
		"balance": bson.M{"$gte": value},
	}
	update := bson.M{"$inc": bson.M{"balance": -value}}

	res := b.collection().FindOneAndUpdate(ctx, filter, update)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return fmt.Errorf("account %s holds less than %s of %s", from, amount, asset)
		}
		return res.Err()
	}
	return nil
}

// TransferOut moves amount of asset out of custody into the account's
// free balance, creating the balance document on first payout.
func (b *Bank) TransferOut(ctx context.Context, asset, to string, amount sdkmath.Int) error {
	value, err := toInt64(amount)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": BalanceID(asset, to)}
	update := bson.M{
		"$inc": bson.M{"balance": value},
		"$setOnInsert": bson.M{
			"asset":   asset,
			"account": to,
		},
	}

	_, err = b.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Deposit seeds an account's free balance. Operational tooling and
// tests only; deposits are outside the ledger's scope.
func (b *Bank) Deposit(ctx context.Context, asset, account string, amount sdkmath.Int) error {
	return b.TransferOut(ctx, asset, account, amount)
}

// Balance returns the account's free balance of the asset.
func (b *Bank) Balance(ctx context.Context, asset, account string) (sdkmath.Int, error) {
	var doc BalanceDocument
	err := b.collection().FindOne(ctx, bson.M{"_id": BalanceID(asset, account)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.Int{}, err
	}
	return sdkmath.NewInt(doc.Balance), nil
}

func toInt64(amount sdkmath.Int) (int64, error) {
	if !amount.IsInt64() {
		return 0, fmt.Errorf("amount %s exceeds custody balance range", amount)
	}
	return amount.Int64(), nil
}
