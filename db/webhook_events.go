package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EventProcessed reports whether the given processor event ID has already
// produced ledger effects. This is only the fast-path gate: the authoritative
// check is the unique _id constraint hit by MarkEventProcessed inside the
// same transaction as the ledger posting it guards.
func (ms *MongoStorage) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	count, err := ms.webhookEvents.CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkEventProcessed records the processor event ID as processed. It returns
// ErrAlreadyExists if the event was recorded before, which aborts any
// enclosing transaction so the ledger posting guarded by this record never
// happens twice. Callers must run this in the same atomic unit as the
// posting itself.
func (ms *MongoStorage) MarkEventProcessed(ctx context.Context, eventID, eventType, fingerprint string) error {
	if eventID == "" {
		return ErrInvalidData
	}
	event := &ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}
	if _, err := ms.webhookEvents.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ProcessedEvent returns the dedup record for the given event ID, or
// ErrNotFound if the event has not been processed.
func (ms *MongoStorage) ProcessedEvent(ctx context.Context, eventID string) (*ProcessedEvent, error) {
	event := &ProcessedEvent{}
	if err := ms.webhookEvents.FindOne(ctx, bson.M{"_id": eventID}).Decode(event); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}
