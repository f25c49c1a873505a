package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.vocdoni.io/dvote/log"
)

// initCollections creates the collections in the MongoDB database if they
// don't exist yet.
func (ms *MongoStorage) initCollections(database string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// get the current collections names to create only the missing ones
	currentCollections, err := ms.collectionNames(ctx, database)
	if err != nil {
		return err
	}
	// aux method to get a collection if it exists, or create it if it doesn't
	getCollection := func(name string) (*mongo.Collection, error) {
		alreadyCreated := false
		for _, c := range currentCollections {
			if c == name {
				alreadyCreated = true
				break
			}
		}
		if !alreadyCreated {
			if err := ms.client().Database(database).CreateCollection(ctx, name); err != nil {
				return nil, err
			}
		}
		return ms.client().Database(database).Collection(name), nil
	}
	// ledger accounts collection
	if ms.accounts, err = getCollection("accounts"); err != nil {
		return err
	}
	// ledger transactions collection
	if ms.transactions, err = getCollection("transactions"); err != nil {
		return err
	}
	// payment intent mirrors collection
	if ms.paymentIntents, err = getCollection("payment_intents"); err != nil {
		return err
	}
	// idempotent request cache collection
	if ms.idempotencyKeys, err = getCollection("idempotency_keys"); err != nil {
		return err
	}
	// processed webhook events collection
	if ms.webhookEvents, err = getCollection("webhook_events"); err != nil {
		return err
	}
	return nil
}

func (ms *MongoStorage) client() *mongo.Client {
	return ms.DBClient
}

// collectionNames returns the names of the collections in the given database.
func (ms *MongoStorage) collectionNames(ctx context.Context, database string) ([]string, error) {
	collectionsCursor, err := ms.client().Database(database).ListCollections(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := collectionsCursor.Close(ctx); err != nil {
			log.Warnw("failed to close collections cursor", "error", err)
		}
	}()
	collections := []bson.D{}
	if err := collectionsCursor.All(ctx, &collections); err != nil {
		return nil, err
	}
	names := []string{}
	for _, col := range collections {
		for _, v := range col {
			if v.Key == "name" {
				names = append(names, v.Value.(string))
			}
		}
	}
	return names, nil
}

// createIndexes creates the indexes for the collections in the MongoDB
// database. The unique indexes are load-bearing: they are the commit-time
// exclusion that makes concurrent duplicate requests resolve as replays.
func (ms *MongoStorage) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	// unique (key, operation) tuple on the idempotency cache
	idempotencyIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "key", Value: 1},       // 1 for ascending order
			{Key: "operation", Value: 1}, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := ms.idempotencyKeys.Indexes().CreateOne(ctx, idempotencyIndex); err != nil {
		return fmt.Errorf("failed to create index on key+operation for idempotency keys: %w", err)
	}
	// external reference lookups on posted transactions
	externalRefIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "externalRef", Value: 1}},
		Options: options.Index().SetSparse(true),
	}
	if _, err := ms.transactions.Indexes().CreateOne(ctx, externalRefIndex); err != nil {
		return fmt.Errorf("failed to create index on externalRef for transactions: %w", err)
	}
	// per-account listings on posted transactions
	accountsIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "debitAccount", Value: 1}},
	}
	if _, err := ms.transactions.Indexes().CreateOne(ctx, accountsIndex); err != nil {
		return fmt.Errorf("failed to create index on debitAccount for transactions: %w", err)
	}
	creditIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "creditAccount", Value: 1}},
	}
	if _, err := ms.transactions.Indexes().CreateOne(ctx, creditIndex); err != nil {
		return fmt.Errorf("failed to create index on creditAccount for transactions: %w", err)
	}
	return nil
}
