package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAccount creates the ledger account with the given ID if it does not
// exist yet and returns it. If the account already exists it is returned
// untouched, the name and type provided are only applied on first creation.
// Safe to call concurrently and inside a session context.
func (ms *MongoStorage) EnsureAccount(ctx context.Context, id, name string, accountType AccountType) (*Account, error) {
	if id == "" {
		return nil, ErrInvalidData
	}
	filter := bson.M{"_id": id}
	update := bson.M{"$setOnInsert": Account{
		ID:        id,
		Name:      name,
		Type:      accountType,
		CreatedAt: time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	account := &Account{}
	if err := ms.accounts.FindOneAndUpdate(ctx, filter, update, opts).Decode(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Account returns the ledger account with the given ID. If the account
// doesn't exist, it returns ErrNotFound.
func (ms *MongoStorage) Account(ctx context.Context, id string) (*Account, error) {
	account := &Account{}
	if err := ms.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(account); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

// RenameAccount updates the display name of an existing account. The rename
// is the only mutation accounts support.
func (ms *MongoStorage) RenameAccount(ctx context.Context, id, name string) error {
	res, err := ms.accounts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
