package db

import (
	"bytes"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// IdempotencyResponse returns the response bytes previously stored for the
// (key, operation) pair, or ErrNotFound on a cache miss.
func (ms *MongoStorage) IdempotencyResponse(ctx context.Context, key, operation string) ([]byte, error) {
	record := &IdempotencyRecord{}
	filter := bson.M{"key": key, "operation": operation}
	if err := ms.idempotencyKeys.FindOne(ctx, filter).Decode(record); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record.Response, nil
}

// StoreIdempotencyResponse stores the exact response bytes for the
// (key, operation) pair. The pair is unique and the stored response is
// immutable. If a record already exists the insert loses to it and the
// outcome depends on the stored bytes: ErrAlreadyExists when they are
// identical (a retry of the same request, the caller can safely read back
// and replay), ErrConflict when they differ (the client reused a key for a
// logically different request).
//
// Both error paths deliberately fail the call even for identical bytes: a
// duplicate-key write aborts any enclosing MongoDB transaction, so the
// caller must resolve the replay outside the atomic unit. The comparison
// read runs on a fresh context for that reason, a session context is dead
// after the failed insert.
func (ms *MongoStorage) StoreIdempotencyResponse(ctx context.Context, key, operation string, response []byte) error {
	if key == "" || operation == "" {
		return ErrInvalidData
	}
	record := &IdempotencyRecord{
		Key:       key,
		Operation: operation,
		Response:  response,
		CreatedAt: time.Now(),
	}
	if _, err := ms.idempotencyKeys.InsertOne(ctx, record); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
		readCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stored, lookupErr := ms.IdempotencyResponse(readCtx, key, operation)
		if lookupErr != nil {
			return lookupErr
		}
		if !bytes.Equal(stored, response) {
			return ErrConflict
		}
		return ErrAlreadyExists
	}
	return nil
}
