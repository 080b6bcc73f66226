// Package syncer implements the bank-connection synchronization engine:
// connection lifecycle, account reconciliation, and transaction ingestion
// against the aggregator.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/store"
)

const (
	// defaultWindowDays is the fallback window for explicit re-syncs when
	// the service was configured with none.
	defaultWindowDays = 30

	// accountConcurrency bounds the per-account fan-out within one sync.
	accountConcurrency = 4
)

// Service is the synchronization engine. One instance serves all users;
// per-connection serialization happens internally.
type Service struct {
	store    *store.Store
	provider Provider
	log      zerolog.Logger

	// locks serializes whole connection operations (sync, delete) against
	// each other; refreshLocks serializes token reads and renewals on the
	// shared connection within one operation, where per-account goroutines
	// run under a single held connection lock.
	locks        *keyedMutex
	refreshLocks *keyedMutex

	windowDays int

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a sync engine over the given store and provider
// client. windowDays sets the default transaction window for explicit
// re-syncs; pass 0 for the built-in default.
func NewService(st *store.Store, provider Provider, log zerolog.Logger, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &Service{
		store:        st,
		provider:     provider,
		log:          log,
		locks:        newKeyedMutex(),
		refreshLocks: newKeyedMutex(),
		windowDays:   windowDays,
		now:          time.Now,
	}
}

// GetAuthorizationURL returns the provider authorization URL for userID.
func (s *Service) GetAuthorizationURL(userID string) string {
	return s.provider.AuthCodeURL(userID)
}

// CallbackResult is the outcome of a completed OAuth callback.
type CallbackResult struct {
	Connection *domain.Connection `json:"connection"`
	Accounts   []*domain.Account  `json:"accounts"`
}

// HandleCallback completes the OAuth flow: exchanges the code, resolves
// the institution, upserts the connection, and runs a first account sync.
// Transactions are picked up by the next SyncConnection call.
func (s *Service) HandleCallback(ctx context.Context, userID, code string) (*CallbackResult, error) {
	tok, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("HandleCallback: %w", err)
	}

	info, err := s.provider.FetchInstitutionInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("HandleCallback: %w", err)
	}

	conn, err := s.UpsertConnection(ctx, userID, tok, info)
	if err != nil {
		return nil, fmt.Errorf("HandleCallback: %w", err)
	}

	s.locks.Lock(conn.ID)
	defer s.locks.Unlock(conn.ID)

	accounts, failed, err := s.SyncAccounts(ctx, userID, conn)
	if err != nil {
		return nil, fmt.Errorf("HandleCallback: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("connection_id", conn.ID).
		Str("institution", conn.InstitutionName).
		Int("accounts", len(accounts)).
		Int("accounts_failed", failed).
		Msg("Bank connection established")

	return &CallbackResult{Connection: conn, Accounts: accounts}, nil
}

// SyncResult is the outcome of one SyncConnection run. Partial success is
// valid and reportable: AccountsFailed of AccountsTotal may be nonzero.
type SyncResult struct {
	Accounts         []*domain.Account `json:"accounts"`
	TransactionCount int               `json:"transactionsCount"`
	AccountsTotal    int               `json:"accountsTotal"`
	AccountsFailed   int               `json:"accountsFailed"`
}

// SyncConnection refreshes the token if needed, re-syncs accounts, and
// re-syncs transactions for the given window. Zero from/to default to the
// configured window ending now. Concurrent syncs of the same connection
// are serialized.
func (s *Service) SyncConnection(ctx context.Context, userID, connectionID string, from, to time.Time) (*SyncResult, error) {
	s.locks.Lock(connectionID)
	defer s.locks.Unlock(connectionID)

	conn, err := s.store.Connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		return nil, fmt.Errorf("SyncConnection: %w", err)
	}

	accounts, accountsFailed, err := s.SyncAccounts(ctx, userID, conn)
	if err != nil {
		return nil, fmt.Errorf("SyncConnection: %w", err)
	}

	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -s.windowDays)
	}

	// Totals cover every account the provider reported, so a balance-fetch
	// failure shows up in the result instead of silently shrinking it.
	result := &SyncResult{
		Accounts:       accounts,
		AccountsTotal:  len(accounts) + accountsFailed,
		AccountsFailed: accountsFailed,
	}

	// Per-account windows are independent; fan out, but isolate failures
	// so one account cannot abort its siblings.
	counts := make([]int, len(accounts))
	failed := make([]bool, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accountConcurrency)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			inserted, err := s.SyncTransactions(gctx, userID, account, conn, from, to)
			if err != nil {
				s.log.Warn().
					Err(err).
					Str("connection_id", conn.ID).
					Str("account_id", account.ID).
					Msg("Transaction sync failed for account")
				failed[i] = true
				return nil
			}
			counts[i] = len(inserted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("SyncConnection: %w", err)
	}

	for i := range accounts {
		if failed[i] {
			result.AccountsFailed++
		}
		result.TransactionCount += counts[i]
	}

	s.log.Info().
		Str("user_id", userID).
		Str("connection_id", conn.ID).
		Int("accounts_total", result.AccountsTotal).
		Int("accounts_failed", result.AccountsFailed).
		Int("transactions_inserted", result.TransactionCount).
		Time("from", from).
		Time("to", to).
		Msg("Connection sync completed")

	return result, nil
}

// ListConnections returns all of a user's connections.
func (s *Service) ListConnections(ctx context.Context, userID string) ([]*domain.Connection, error) {
	return s.store.Connections.ListByUser(ctx, userID)
}

// GetConnection returns one connection owned by the user.
func (s *Service) GetConnection(ctx context.Context, userID, connectionID string) (*domain.Connection, error) {
	return s.store.Connections.GetByID(ctx, userID, connectionID)
}

// DeleteConnection removes a connection and cascades to its accounts and
// their transactions.
func (s *Service) DeleteConnection(ctx context.Context, userID, connectionID string) error {
	s.locks.Lock(connectionID)
	defer s.locks.Unlock(connectionID)

	conn, err := s.store.Connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		return fmt.Errorf("DeleteConnection: %w", err)
	}

	// Mark the connection revoked before cascading, so a concurrent read
	// during the multi-step delete sees a terminal status rather than an
	// active connection whose accounts are vanishing.
	conn.Status = domain.ConnectionRevoked
	conn.Touch(s.now())
	if err := s.store.Connections.Update(ctx, conn); err != nil {
		return fmt.Errorf("DeleteConnection: %w", err)
	}

	accounts, err := s.store.Accounts.ListByConnection(ctx, userID, conn.ID)
	if err != nil {
		return fmt.Errorf("DeleteConnection: %w", err)
	}

	var removedTxs int
	for _, account := range accounts {
		n, err := s.store.Transactions.DeleteByAccount(ctx, userID, account.ID)
		if err != nil {
			return fmt.Errorf("DeleteConnection: transactions of account %s: %w", account.ID, err)
		}
		removedTxs += n

		if err := s.store.Accounts.Delete(ctx, userID, account.ID); err != nil {
			return fmt.Errorf("DeleteConnection: account %s: %w", account.ID, err)
		}
	}

	if err := s.store.Connections.Delete(ctx, userID, conn.ID); err != nil {
		return fmt.Errorf("DeleteConnection: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("connection_id", conn.ID).
		Int("accounts_removed", len(accounts)).
		Int("transactions_removed", removedTxs).
		Msg("Connection deleted")

	return nil
}
