package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction executes the provided function within a MongoDB transaction.
// It handles starting, committing, and aborting the transaction as needed.
// The function passed must use the provided session context for all MongoDB
// operations, so that either every write commits or none does. This is the
// atomic unit that keeps "mark event processed" and "post ledger transaction"
// together, and "persist intent mirror" and "store cached response" together.
func (ms *MongoStorage) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	// Create a session
	session, err := ms.DBClient.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	// Define the transaction function
	txnFn := func(sessCtx mongo.SessionContext) (any, error) {
		if err := fn(sessCtx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Start the transaction with a timeout
	txnCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Execute the transaction
	if _, err := session.WithTransaction(txnCtx, txnFn); err != nil {
		return err
	}
	return nil
}
