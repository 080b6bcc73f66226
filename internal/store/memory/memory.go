// Package memory provides in-memory implementations of the store
// repositories. Data is lost on restart - used by tests and local
// development. The uniqueness constraints enforced by the mongo indexes
// are enforced here too, so dedup behavior matches across backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/store"
)

// New returns a store.Store backed entirely by memory.
func New() *store.Store {
	return &store.Store{
		Connections:  NewConnectionRepository(),
		Accounts:     NewAccountRepository(),
		Transactions: NewTransactionRepository(),
	}
}

// ConnectionRepository is an in-memory implementation of
// store.ConnectionRepository. It is safe for concurrent use.
type ConnectionRepository struct {
	mu    sync.RWMutex
	conns map[string]*domain.Connection
}

// NewConnectionRepository creates an empty in-memory connection repository.
func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{conns: make(map[string]*domain.Connection)}
}

func (r *ConnectionRepository) Insert(ctx context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.conns {
		if existing.UserID == conn.UserID &&
			existing.Provider == conn.Provider &&
			existing.InstitutionID == conn.InstitutionID {
			return store.ErrDuplicate
		}
	}

	connCopy := *conn
	r.conns[conn.ID] = &connCopy
	return nil
}

func (r *ConnectionRepository) Update(ctx context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return store.ErrNotFound
	}
	connCopy := *conn
	r.conns[conn.ID] = &connCopy
	return nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok || conn.UserID != userID {
		return nil, store.ErrNotFound
	}
	connCopy := *conn
	return &connCopy, nil
}

func (r *ConnectionRepository) FindByInstitution(ctx context.Context, userID, provider, institutionID string) (*domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conn := range r.conns {
		if conn.UserID == userID && conn.Provider == provider && conn.InstitutionID == institutionID {
			connCopy := *conn
			return &connCopy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Connection
	for _, conn := range r.conns {
		if conn.UserID != userID {
			continue
		}
		connCopy := *conn
		result = append(result, &connCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *ConnectionRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[id]
	if !ok || conn.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.conns, id)
	return nil
}

// AccountRepository is an in-memory implementation of
// store.AccountRepository. It is safe for concurrent use.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountRepository creates an empty in-memory account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepository) Insert(ctx context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accCopy := *acc
	r.accounts[acc.ID] = &accCopy
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, acc *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[acc.ID]; !ok {
		return store.ErrNotFound
	}
	accCopy := *acc
	r.accounts[acc.ID] = &accCopy
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, userID, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[id]
	if !ok || acc.UserID != userID {
		return nil, store.ErrNotFound
	}
	accCopy := *acc
	return &accCopy, nil
}

func (r *AccountRepository) FindByExternalID(ctx context.Context, userID, connectionID, externalID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, acc := range r.accounts {
		if acc.UserID == userID && acc.ConnectionID == connectionID && acc.ExternalID == externalID {
			accCopy := *acc
			return &accCopy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Account
	for _, acc := range r.accounts {
		if acc.UserID != userID {
			continue
		}
		accCopy := *acc
		result = append(result, &accCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *AccountRepository) ListByConnection(ctx context.Context, userID, connectionID string) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Account
	for _, acc := range r.accounts {
		if acc.UserID != userID || acc.ConnectionID != connectionID {
			continue
		}
		accCopy := *acc
		result = append(result, &accCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *AccountRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[id]
	if !ok || acc.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

// TransactionRepository is an in-memory implementation of
// store.TransactionRepository. Inserts enforce the sparse uniqueness of
// (account_id, external_id), mirroring the mongo index.
type TransactionRepository struct {
	mu  sync.RWMutex
	txs map[string]*domain.Transaction
}

// NewTransactionRepository creates an empty in-memory transaction repository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{txs: make(map[string]*domain.Transaction)}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ExternalID != "" {
		for _, existing := range r.txs {
			if existing.AccountID == tx.AccountID && existing.ExternalID == tx.ExternalID {
				return store.ErrDuplicate
			}
		}
	}

	txCopy := *tx
	r.txs[tx.ID] = &txCopy
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.txs[tx.ID]; !ok {
		return store.ErrNotFound
	}
	txCopy := *tx
	r.txs[tx.ID] = &txCopy
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[id]
	if !ok || tx.UserID != userID {
		return nil, store.ErrNotFound
	}
	txCopy := *tx
	return &txCopy, nil
}

func (r *TransactionRepository) FindByExternalID(ctx context.Context, userID, accountID, externalID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.txs {
		if tx.UserID == userID && tx.AccountID == accountID && tx.ExternalID == externalID {
			txCopy := *tx
			return &txCopy, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range r.txs {
		if tx.UserID != userID {
			continue
		}
		if filter.AccountID != "" && tx.AccountID != filter.AccountID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if !filter.Start.IsZero() && tx.Date.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && tx.Date.After(filter.End) {
			continue
		}
		txCopy := *tx
		result = append(result, &txCopy)
	}

	// Newest first, matching the API's default ordering.
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.Transaction{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok || tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.txs, id)
	return nil
}

func (r *TransactionRepository) DeleteByAccount(ctx context.Context, userID, accountID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int
	for id, tx := range r.txs {
		if tx.UserID == userID && tx.AccountID == accountID {
			delete(r.txs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Interface guards.
var (
	_ store.ConnectionRepository  = (*ConnectionRepository)(nil)
	_ store.AccountRepository     = (*AccountRepository)(nil)
	_ store.TransactionRepository = (*TransactionRepository)(nil)
)
