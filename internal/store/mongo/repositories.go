package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/store"
)

// ConnectionRepository implements store.ConnectionRepository on mongo.
type ConnectionRepository struct {
	col *mongo.Collection
}

func (r *ConnectionRepository) Insert(ctx context.Context, conn *domain.Connection) error {
	if _, err := r.col.InsertOne(ctx, connectionToRow(conn)); err != nil {
		return fmt.Errorf("Insert connection: %w", mapWriteErr(err))
	}
	return nil
}

func (r *ConnectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	res, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: conn.ID}}, connectionToRow(conn))
	if err != nil {
		return fmt.Errorf("Update connection: %w", mapWriteErr(err))
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Connection, error) {
	var row connectionRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain(), nil
}

func (r *ConnectionRepository) FindByInstitution(ctx context.Context, userID, provider, institutionID string) (*domain.Connection, error) {
	var row connectionRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "provider", Value: provider},
		{Key: "institution_id", Value: institutionID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain(), nil
}

func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error) {
	cursor, err := r.col.Find(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("ListByUser connections: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Connection
	for cursor.Next(ctx) {
		var row connectionRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("ListByUser connections: decode: %w", err)
		}
		result = append(result, row.toDomain())
	}
	return result, cursor.Err()
}

func (r *ConnectionRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("Delete connection: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AccountRepository implements store.AccountRepository on mongo.
type AccountRepository struct {
	col *mongo.Collection
}

func (r *AccountRepository) Insert(ctx context.Context, acc *domain.Account) error {
	if _, err := r.col.InsertOne(ctx, accountToRow(acc)); err != nil {
		return fmt.Errorf("Insert account: %w", mapWriteErr(err))
	}
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, acc *domain.Account) error {
	res, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: acc.ID}}, accountToRow(acc))
	if err != nil {
		return fmt.Errorf("Update account: %w", mapWriteErr(err))
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, userID, id string) (*domain.Account, error) {
	var row accountRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain()
}

func (r *AccountRepository) FindByExternalID(ctx context.Context, userID, connectionID, externalID string) (*domain.Account, error) {
	var row accountRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "connection_id", Value: connectionID},
		{Key: "external_id", Value: externalID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain()
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	return r.list(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (r *AccountRepository) ListByConnection(ctx context.Context, userID, connectionID string) ([]*domain.Account, error) {
	return r.list(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "connection_id", Value: connectionID},
	})
}

func (r *AccountRepository) list(ctx context.Context, filter bson.D) ([]*domain.Account, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Account
	for cursor.Next(ctx) {
		var row accountRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("list accounts: decode: %w", err)
		}
		acc, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, acc)
	}
	return result, cursor.Err()
}

func (r *AccountRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("Delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TransactionRepository implements store.TransactionRepository on mongo.
type TransactionRepository struct {
	col *mongo.Collection
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	if _, err := r.col.InsertOne(ctx, transactionToRow(tx)); err != nil {
		return fmt.Errorf("Insert transaction: %w", mapWriteErr(err))
	}
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	res, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: tx.ID}}, transactionToRow(tx))
	if err != nil {
		return fmt.Errorf("Update transaction: %w", mapWriteErr(err))
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	var row transactionRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain()
}

func (r *TransactionRepository) FindByExternalID(ctx context.Context, userID, accountID, externalID string) (*domain.Transaction, error) {
	var row transactionRow
	err := r.col.FindOne(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "account_id", Value: accountID},
		{Key: "external_id", Value: externalID},
	}).Decode(&row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return row.toDomain()
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	query := bson.D{{Key: "user_id", Value: userID}}
	if filter.AccountID != "" {
		query = append(query, bson.E{Key: "account_id", Value: filter.AccountID})
	}
	if filter.Type != "" {
		query = append(query, bson.E{Key: "type", Value: string(filter.Type)})
	}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	dateRange := bson.D{}
	if !filter.Start.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$gte", Value: filter.Start})
	}
	if !filter.End.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$lte", Value: filter.End})
	}
	if len(dateRange) > 0 {
		query = append(query, bson.E{Key: "date", Value: dateRange})
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("List transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*domain.Transaction
	for cursor.Next(ctx) {
		var row transactionRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("List transactions: decode: %w", err)
		}
		tx, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, cursor.Err()
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("Delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) DeleteByAccount(ctx context.Context, userID, accountID string) (int, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "account_id", Value: accountID},
	})
	if err != nil {
		return 0, fmt.Errorf("DeleteByAccount transactions: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Interface guards.
var (
	_ store.ConnectionRepository  = (*ConnectionRepository)(nil)
	_ store.AccountRepository     = (*AccountRepository)(nil)
	_ store.TransactionRepository = (*TransactionRepository)(nil)
)
