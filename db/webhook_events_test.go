package db

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMarkEventProcessed(t *testing.T) {
	c := qt.New(t)
	defer resetDB(c)
	ctx := context.Background()

	processed, err := testDB.EventProcessed(ctx, "evt_1")
	c.Assert(err, qt.IsNil)
	c.Assert(processed, qt.IsFalse)

	c.Assert(testDB.MarkEventProcessed(ctx, "evt_1", "payment_intent.succeeded", "fp1"), qt.IsNil)

	processed, err = testDB.EventProcessed(ctx, "evt_1")
	c.Assert(err, qt.IsNil)
	c.Assert(processed, qt.IsTrue)

	// a second mark for the same event ID reports the existing record
	err = testDB.MarkEventProcessed(ctx, "evt_1", "payment_intent.succeeded", "fp1")
	c.Assert(err, qt.Equals, ErrAlreadyExists)

	event, err := testDB.ProcessedEvent(ctx, "evt_1")
	c.Assert(err, qt.IsNil)
	c.Assert(event.EventType, qt.Equals, "payment_intent.succeeded")
	c.Assert(event.Fingerprint, qt.Equals, "fp1")

	_, err = testDB.ProcessedEvent(ctx, "evt_missing")
	c.Assert(err, qt.Equals, ErrNotFound)

	c.Assert(testDB.MarkEventProcessed(ctx, "", "payment_intent.succeeded", "fp"), qt.Equals, ErrInvalidData)
}
