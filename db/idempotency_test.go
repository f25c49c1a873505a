package db

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestIdempotencyResponse(t *testing.T) {
	c := qt.New(t)
	defer resetDB(c)
	ctx := context.Background()

	// cache miss
	_, err := testDB.IdempotencyResponse(ctx, "k1", "create_intent")
	c.Assert(err, qt.Equals, ErrNotFound)

	// store and read back the exact bytes
	response := []byte(`{"id":"pi_X","clientSecret":"cs_1","status":"requires_action"}`)
	c.Assert(testDB.StoreIdempotencyResponse(ctx, "k1", "create_intent", response), qt.IsNil)

	stored, err := testDB.IdempotencyResponse(ctx, "k1", "create_intent")
	c.Assert(err, qt.IsNil)
	c.Assert(stored, qt.DeepEquals, response)

	// the same key scoped to a different operation is a distinct record
	_, err = testDB.IdempotencyResponse(ctx, "k1", "other_op")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestStoreIdempotencyResponseConflicts(t *testing.T) {
	c := qt.New(t)
	defer resetDB(c)
	ctx := context.Background()

	response := []byte(`{"id":"pi_X"}`)
	c.Assert(testDB.StoreIdempotencyResponse(ctx, "k2", "create_intent", response), qt.IsNil)

	// re-storing identical bytes reports the existing record, so callers in
	// an aborted transaction can resolve the replay by reading back
	err := testDB.StoreIdempotencyResponse(ctx, "k2", "create_intent", response)
	c.Assert(err, qt.Equals, ErrAlreadyExists)

	// storing different bytes under the same pair is a key reuse conflict
	err = testDB.StoreIdempotencyResponse(ctx, "k2", "create_intent", []byte(`{"id":"pi_Y"}`))
	c.Assert(err, qt.Equals, ErrConflict)

	// the stored response is immutable, the conflict left it untouched
	stored, err := testDB.IdempotencyResponse(ctx, "k2", "create_intent")
	c.Assert(err, qt.IsNil)
	c.Assert(stored, qt.DeepEquals, response)

	// empty keys and operations are rejected
	c.Assert(testDB.StoreIdempotencyResponse(ctx, "", "create_intent", response), qt.Equals, ErrInvalidData)
	c.Assert(testDB.StoreIdempotencyResponse(ctx, "k2", "", response), qt.Equals, ErrInvalidData)
}
