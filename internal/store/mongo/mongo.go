// Package mongo implements the store repositories on MongoDB. The unique
// indexes created by EnsureIndexes back the engine's idempotency
// guarantees: the sparse index on (account_id, external_id) is the dedup
// backstop for synced transactions, and the index on (user_id, provider,
// institution_id) enforces one connection per institution.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ivolkov/moneyflow/internal/store"
)

const (
	connectionsCollection  = "connections"
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// Client wraps a mongo database and exposes the store repositories.
type Client struct {
	db *mongo.Database
}

// Connect dials mongo and returns a Client bound to the named database.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return &Client{db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	return c.db.Client().Disconnect(ctx)
}

// Store returns a store.Store backed by this client.
func (c *Client) Store() *store.Store {
	return &store.Store{
		Connections:  &ConnectionRepository{col: c.db.Collection(connectionsCollection)},
		Accounts:     &AccountRepository{col: c.db.Collection(accountsCollection)},
		Transactions: &TransactionRepository{col: c.db.Collection(transactionsCollection)},
	}
}

// EnsureIndexes creates the indexes the engine relies on. Safe to call on
// every startup; existing indexes are left untouched.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(connectionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "provider", Value: 1},
				{Key: "institution_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: connections: %w", err)
	}

	_, err = c.db.Collection(accountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "connection_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: accounts: %w", err)
	}

	_, err = c.db.Collection(transactionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}}},
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "external_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "external_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: transactions: %w", err)
	}

	return nil
}

func mapWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func mapReadErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}
