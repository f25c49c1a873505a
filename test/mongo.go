// Package test provides shared helpers for integration tests.
package test

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// StartMongoContainer starts a single-node MongoDB replica set container.
// The replica set is required because the store relies on multi-document
// transactions. Call Terminate on the returned container when done.
func StartMongoContainer(ctx context.Context) (*mongodb.MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}
	return container, nil
}

// RandomDatabaseName returns a fresh database name so parallel test
// packages don't step on each other inside a shared container.
func RandomDatabaseName() string {
	return fmt.Sprintf("payments-test-%d", rand.Int63()) //nolint:gosec
}
