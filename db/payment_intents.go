package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetPaymentIntent creates or updates the local mirror of a remote payment
// intent, keyed by the processor-assigned identifier. The immutable fields
// (provider, amount, currency, client secret) are only written on first
// insert, while the status is last-write-wins. Status reports may arrive out
// of order or duplicated, the webhook dedup gate guards ledger effects.
func (ms *MongoStorage) SetPaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	if intent == nil || intent.ProviderID == "" {
		return ErrInvalidData
	}
	now := time.Now()
	filter := bson.M{"_id": intent.ProviderID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"provider":     intent.Provider,
			"amount":       intent.Amount,
			"currency":     intent.Currency,
			"clientSecret": intent.ClientSecret,
			"customerRef":  intent.CustomerRef,
			"createdAt":    now,
		},
		"$set": bson.M{
			"status":    intent.Status,
			"updatedAt": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.paymentIntents.UpdateOne(ctx, filter, update, opts); err != nil {
		return err
	}
	return nil
}

// PaymentIntent returns the mirror of the payment intent with the given
// processor-assigned ID. If it doesn't exist, it returns ErrNotFound.
func (ms *MongoStorage) PaymentIntent(ctx context.Context, providerID string) (*PaymentIntent, error) {
	intent := &PaymentIntent{}
	if err := ms.paymentIntents.FindOne(ctx, bson.M{"_id": providerID}).Decode(intent); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return intent, nil
}
