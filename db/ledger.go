package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostTransaction appends a double-entry transaction debiting one account and
// crediting another for the same amount. It returns ErrInvalidAmount if the
// amount is not positive and ErrUnknownAccount if either account does not
// exist at posting time. The store does not deduplicate, callers are expected
// to run this inside the same atomic unit as their dedup record (see
// WithTransaction). Posted transactions are immutable, there is no update or
// delete operation on this collection.
func (ms *MongoStorage) PostTransaction(
	ctx context.Context, debitAccount, creditAccount string, amount int64, currency, externalRef string,
) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if debitAccount == "" || creditAccount == "" {
		return nil, ErrUnknownAccount
	}
	// both accounts must exist at transaction-creation time
	count, err := ms.accounts.CountDocuments(ctx, bson.M{
		"_id": bson.M{"$in": []string{debitAccount, creditAccount}},
	})
	if err != nil {
		return nil, err
	}
	expected := int64(2)
	if debitAccount == creditAccount {
		expected = 1
	}
	if count < expected {
		return nil, ErrUnknownAccount
	}
	transaction := &Transaction{
		ID:            uuid.New().String(),
		DebitAccount:  debitAccount,
		CreditAccount: creditAccount,
		Amount:        amount,
		Currency:      currency,
		ExternalRef:   externalRef,
		CreatedAt:     time.Now(),
	}
	if _, err := ms.transactions.InsertOne(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// Transaction returns the posted transaction with the given ID. If the
// transaction doesn't exist, it returns ErrNotFound.
func (ms *MongoStorage) Transaction(ctx context.Context, id string) (*Transaction, error) {
	transaction := &Transaction{}
	if err := ms.transactions.FindOne(ctx, bson.M{"_id": id}).Decode(transaction); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return transaction, nil
}

// TransactionsByExternalRef returns the posted transactions carrying the
// given external (processor) reference, newest first.
func (ms *MongoStorage) TransactionsByExternalRef(ctx context.Context, externalRef string) ([]Transaction, error) {
	return ms.findTransactions(ctx, bson.M{"externalRef": externalRef})
}

// AccountTransactions returns the posted transactions where the given account
// appears on either side, newest first. It returns ErrNotFound if the account
// does not exist.
func (ms *MongoStorage) AccountTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	count, err := ms.accounts.CountDocuments(ctx, bson.M{"_id": accountID})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return ms.findTransactions(ctx, bson.M{"$or": []bson.M{
		{"debitAccount": accountID},
		{"creditAccount": accountID},
	}})
}

func (ms *MongoStorage) findTransactions(ctx context.Context, filter bson.M) ([]Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := ms.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()
	var transactions []Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}
