// Package ledger keeps account balances consistent with the net effect of
// manually entered transactions. Amounts are stored signed (negative =
// outflow); applying a transaction adds its signed amount to the balance
// and reversing subtracts it, one rule for every path.
//
// Synced (provider-sourced) rows never pass through here: a linked
// account's balance is the provider's authoritative figure from account
// sync.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/store"
)

// ErrSyncedImmutable is returned when mutating a provider-sourced
// transaction. Synced rows are write-once financial facts.
var ErrSyncedImmutable = errors.New("ledger: synced transactions are immutable")

// BalanceInvariantError means a balance adjustment could not be applied
// safely: the target account does not exist for the requesting user, or a
// reversal references an account that is gone. The single mutation fails;
// no other record is touched.
type BalanceInvariantError struct {
	AccountID     string
	TransactionID string
	Reason        string
}

func (e *BalanceInvariantError) Error() string {
	return fmt.Sprintf("balance invariant violated for account %s (transaction %s): %s",
		e.AccountID, e.TransactionID, e.Reason)
}

// Service applies the balance ledger rules around transaction mutations.
type Service struct {
	store *store.Store
	log   zerolog.Logger

	// accountLocks serializes the (row mutation, balance update) pair per
	// account so concurrent readers never observe one without the other.
	accountLocks sync.Map // account id -> *sync.Mutex

	now func() time.Time
}

// NewService creates a ledger service over the given store.
func NewService(st *store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) lockAccount(id string) func() {
	v, _ := s.accountLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// lockAccounts locks one or two accounts in a fixed order so a pair of
// concurrent reassignments cannot deadlock.
func (s *Service) lockAccounts(a, b string) func() {
	if a == b || b == "" {
		return s.lockAccount(a)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.lockAccount(first)
	unlockSecond := s.lockAccount(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}

// effect is the signed contribution of a transaction to its account's
// balance. Transfers are recorded but do not move the balance; the paired
// movement on the counterparty account is its own transaction.
func effect(tx *domain.Transaction) decimal.Decimal {
	if tx.Type == domain.TransactionTransfer {
		return decimal.Zero
	}
	return tx.Amount
}

// CreateInput is a manually entered transaction. Amount is the unsigned
// magnitude as typed by the user; the stored row carries the sign implied
// by Type.
type CreateInput struct {
	AccountID   string                 `json:"accountId"`
	Date        time.Time              `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
	Type        domain.TransactionType `json:"type"`
	Category    string                 `json:"category"`
	Subcategory string                 `json:"subcategory"`
	Description string                 `json:"description"`
	Merchant    string                 `json:"merchant"`
	IsRecurring bool                   `json:"isRecurring"`
	Tags        []string               `json:"tags"`
	Notes       string                 `json:"notes"`
	Location    *domain.Location       `json:"location"`
}

// CreateTransaction inserts a manual transaction and applies its effect
// to the owning account's balance as one unit.
func (s *Service) CreateTransaction(ctx context.Context, userID string, input CreateInput) (*domain.Transaction, error) {
	account, err := s.store.Accounts.GetByID(ctx, userID, input.AccountID)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	now := s.now()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		AccountID:   account.ID,
		Date:        input.Date,
		Amount:      domain.SignedAmount(input.Amount, input.Type),
		Type:        input.Type,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Description: input.Description,
		Merchant:    input.Merchant,
		IsRecurring: input.IsRecurring,
		Tags:        input.Tags,
		Notes:       input.Notes,
		Location:    input.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	unlock := s.lockAccount(account.ID)
	defer unlock()

	if err := s.store.Transactions.Insert(ctx, tx); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	if err := s.adjustBalance(ctx, userID, account.ID, effect(tx), tx.ID); err != nil {
		return nil, err
	}

	return tx, nil
}

// UpdateInput carries a partial transaction update; nil fields are left
// unchanged. Amount is an unsigned magnitude, like CreateInput.
type UpdateInput struct {
	AccountID   *string                 `json:"accountId"`
	Date        *time.Time              `json:"date"`
	Amount      *decimal.Decimal        `json:"amount"`
	Type        *domain.TransactionType `json:"type"`
	Category    *string                 `json:"category"`
	Subcategory *string                 `json:"subcategory"`
	Description *string                 `json:"description"`
	Merchant    *string                 `json:"merchant"`
	IsRecurring *bool                   `json:"isRecurring"`
	Tags        *[]string               `json:"tags"`
	Notes       *string                 `json:"notes"`
	Location    *domain.Location        `json:"location"`
}

// UpdateTransaction mutates a manual transaction, reversing the old
// amount's effect on the old account before applying the new amount's
// effect to the new account (they differ when the row is reassigned).
func (s *Service) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateInput) (*domain.Transaction, error) {
	tx, err := s.store.Transactions.GetByID(ctx, userID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	if tx.Synced() {
		return nil, fmt.Errorf("UpdateTransaction: %w", ErrSyncedImmutable)
	}

	oldAccountID := tx.AccountID
	newAccountID := oldAccountID
	if input.AccountID != nil && *input.AccountID != oldAccountID {
		newAccountID = *input.AccountID
		// The target must exist and belong to the requesting user before
		// any balance moves.
		if _, err := s.store.Accounts.GetByID(ctx, userID, newAccountID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &BalanceInvariantError{
					AccountID:     newAccountID,
					TransactionID: tx.ID,
					Reason:        "target account does not exist for this user",
				}
			}
			return nil, fmt.Errorf("UpdateTransaction: %w", err)
		}
	}

	unlock := s.lockAccounts(oldAccountID, newAccountID)
	defer unlock()

	// Reverse the old effect first, then apply the new one; both balance
	// writes persist their own account.
	if err := s.adjustBalance(ctx, userID, oldAccountID, effect(tx).Neg(), tx.ID); err != nil {
		return nil, err
	}

	applyUpdate(tx, input)
	tx.AccountID = newAccountID
	tx.Touch(s.now())

	if err := s.store.Transactions.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	if err := s.adjustBalance(ctx, userID, newAccountID, effect(tx), tx.ID); err != nil {
		return nil, err
	}

	return tx, nil
}

func applyUpdate(tx *domain.Transaction, input UpdateInput) {
	magnitude := tx.Amount.Abs()
	typ := tx.Type
	if input.Amount != nil {
		magnitude = input.Amount.Abs()
	}
	if input.Type != nil {
		typ = *input.Type
	}
	tx.Amount = domain.SignedAmount(magnitude, typ)
	tx.Type = typ

	if input.Date != nil {
		tx.Date = *input.Date
	}
	if input.Category != nil {
		tx.Category = *input.Category
	}
	if input.Subcategory != nil {
		tx.Subcategory = *input.Subcategory
	}
	if input.Description != nil {
		tx.Description = *input.Description
	}
	if input.Merchant != nil {
		tx.Merchant = *input.Merchant
	}
	if input.IsRecurring != nil {
		tx.IsRecurring = *input.IsRecurring
	}
	if input.Tags != nil {
		tx.Tags = *input.Tags
	}
	if input.Notes != nil {
		tx.Notes = *input.Notes
	}
	if input.Location != nil {
		tx.Location = input.Location
	}
}

// DeleteTransaction reverses a manual transaction's effect on its account
// and removes the row. Synced rows are removed without touching the
// balance, which belongs to the provider for linked accounts.
func (s *Service) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	tx, err := s.store.Transactions.GetByID(ctx, userID, transactionID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	if !tx.Synced() {
		unlock := s.lockAccount(tx.AccountID)
		defer unlock()

		if err := s.adjustBalance(ctx, userID, tx.AccountID, effect(tx).Neg(), tx.ID); err != nil {
			return err
		}
	}

	if err := s.store.Transactions.Delete(ctx, userID, tx.ID); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// adjustBalance applies a signed delta to one account's stored balance.
// A missing account is an invariant violation, not a silent skip.
func (s *Service) adjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal, transactionID string) error {
	if delta.IsZero() {
		return nil
	}

	account, err := s.store.Accounts.GetByID(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &BalanceInvariantError{
				AccountID:     accountID,
				TransactionID: transactionID,
				Reason:        "account no longer exists",
			}
		}
		return fmt.Errorf("adjustBalance: %w", err)
	}

	account.Balance = account.Balance.Add(delta)
	account.Touch(s.now())
	if err := s.store.Accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("adjustBalance: %w", err)
	}

	s.log.Debug().
		Str("account_id", accountID).
		Str("transaction_id", transactionID).
		Str("delta", delta.String()).
		Str("balance", account.Balance.String()).
		Msg("Balance adjusted")

	return nil
}

// GetTransaction returns one transaction owned by the user.
func (s *Service) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return s.store.Transactions.GetByID(ctx, userID, transactionID)
}

// ListTransactions returns the user's transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	return s.store.Transactions.List(ctx, userID, filter)
}

// AccountInput is a manually created account.
type AccountInput struct {
	Name          string             `json:"name"`
	Type          domain.AccountType `json:"type"`
	Institution   string             `json:"institution"`
	Balance       decimal.Decimal    `json:"balance"`
	Currency      string             `json:"currency"`
	AccountNumber string             `json:"accountNumber"`
}

// CreateAccount inserts a manually managed account with an opening balance.
func (s *Service) CreateAccount(ctx context.Context, userID string, input AccountInput) (*domain.Account, error) {
	now := s.now()
	account := &domain.Account{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          input.Name,
		Type:          input.Type,
		Institution:   input.Institution,
		Balance:       input.Balance,
		Currency:      input.Currency,
		AccountNumber: input.AccountNumber,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Accounts.Insert(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return account, nil
}

// GetAccount returns one account owned by the user.
func (s *Service) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	return s.store.Accounts.GetByID(ctx, userID, accountID)
}

// ListAccounts returns all of a user's accounts.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	return s.store.Accounts.ListByUser(ctx, userID)
}

// DeleteAccount removes a manually managed account and its transactions.
// Accounts still owned by a bank connection must be disconnected first.
func (s *Service) DeleteAccount(ctx context.Context, userID, accountID string) error {
	account, err := s.store.Accounts.GetByID(ctx, userID, accountID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if account.Linked() {
		return fmt.Errorf("DeleteAccount: %w", store.ErrAccountLinked)
	}

	unlock := s.lockAccount(account.ID)
	defer unlock()

	removed, err := s.store.Transactions.DeleteByAccount(ctx, userID, account.ID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	if err := s.store.Accounts.Delete(ctx, userID, account.ID); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Int("transactions_removed", removed).
		Msg("Account deleted")

	return nil
}
