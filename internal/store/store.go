// Package store defines the persistence interfaces consumed by the sync
// engine and the balance ledger. Implementations are document-style: all
// cross-entity lookups are by field equality, no joins.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ivolkov/moneyflow/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist or does not
	// belong to the requesting user.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, e.g. two transactions with the same (account, external id).
	ErrDuplicate = errors.New("store: duplicate")

	// ErrAccountLinked is returned when deleting an account still owned by
	// a bank connection. The connection must be disconnected first.
	ErrAccountLinked = errors.New("store: account is linked to a connection")
)

// ConnectionRepository persists bank connections. A unique constraint on
// (user_id, provider, institution_id) backs the upsert invariant.
type ConnectionRepository interface {
	Insert(ctx context.Context, conn *domain.Connection) error
	Update(ctx context.Context, conn *domain.Connection) error
	GetByID(ctx context.Context, userID, id string) (*domain.Connection, error)
	FindByInstitution(ctx context.Context, userID, provider, institutionID string) (*domain.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error)
	Delete(ctx context.Context, userID, id string) error
}

// AccountRepository persists accounts.
type AccountRepository interface {
	Insert(ctx context.Context, acc *domain.Account) error
	Update(ctx context.Context, acc *domain.Account) error
	GetByID(ctx context.Context, userID, id string) (*domain.Account, error)
	// FindByExternalID looks up a linked account by the provider's account
	// identifier within one connection.
	FindByExternalID(ctx context.Context, userID, connectionID, externalID string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Account, error)
	ListByConnection(ctx context.Context, userID, connectionID string) ([]*domain.Account, error)
	Delete(ctx context.Context, userID, id string) error
}

// TransactionFilter narrows transaction listings. Zero values are ignored.
type TransactionFilter struct {
	AccountID string
	Type      domain.TransactionType
	Category  string
	Start     time.Time
	End       time.Time
	Limit     int
	Offset    int
}

// TransactionRepository persists transactions. A sparse unique constraint
// on (account_id, external_id) is the deduplication backstop for synced
// rows even if application-level dedup is bypassed by a race.
type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error)
	FindByExternalID(ctx context.Context, userID, accountID, externalID string) (*domain.Transaction, error)
	List(ctx context.Context, userID string, filter TransactionFilter) ([]*domain.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteByAccount(ctx context.Context, userID, accountID string) (int, error)
}

// Store bundles the repositories an engine instance works against.
type Store struct {
	Connections  ConnectionRepository
	Accounts     AccountRepository
	Transactions TransactionRepository
}
