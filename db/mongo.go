// Package db provides the MongoDB-backed durable store for the payments
// ledger: accounts, double-entry transactions, payment intent mirrors,
// idempotency records and processed webhook events.
package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.vocdoni.io/dvote/log"
)

// MongoStorage uses an external MongoDB service for storing the ledger and
// the payment bookkeeping collections. It holds no in-memory state beyond
// the collection handles, all coordination lives in the database.
type MongoStorage struct {
	DBClient *mongo.Client
	database string

	accounts        *mongo.Collection
	transactions    *mongo.Collection
	paymentIntents  *mongo.Collection
	idempotencyKeys *mongo.Collection
	webhookEvents   *mongo.Collection
}

// New connects to the MongoDB server and initializes the collections and
// indexes. If the PAYMENTS_MONGO_RESET_DB environment variable is set, the
// database documents are dropped and the indexes recreated.
func New(url, database string) (*MongoStorage, error) {
	ms := &MongoStorage{}
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	log.Infow("connecting to mongodb", "url", url, "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	// create a new client with the connection options
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// init the collections
	ms.DBClient = client
	ms.database = database
	if err := ms.initCollections(database); err != nil {
		return nil, err
	}
	// if reset flag is enabled, Reset drops the database documents and
	// recreates indexes, else just createIndexes
	if reset := os.Getenv("PAYMENTS_MONGO_RESET_DB"); reset != "" {
		if err := ms.Reset(); err != nil {
			return nil, err
		}
	} else {
		if err := ms.createIndexes(); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

func (ms *MongoStorage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.DBClient.Disconnect(ctx); err != nil {
		log.Warn(err)
	}
}

// Reset drops all the collections of the database, then recreates them and
// their indexes. Collections must exist up front, documents inserted inside
// a multi-document transaction cannot implicitly create them.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, col := range []*mongo.Collection{
		ms.accounts, ms.transactions, ms.paymentIntents,
		ms.idempotencyKeys, ms.webhookEvents,
	} {
		if err := col.Drop(ctx); err != nil {
			return err
		}
	}
	if err := ms.initCollections(ms.database); err != nil {
		return err
	}
	return ms.createIndexes()
}
