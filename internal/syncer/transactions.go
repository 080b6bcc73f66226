package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
	"github.com/ivolkov/moneyflow/internal/store"
)

// SyncTransactions fetches the provider transactions for one linked
// account over [from, to] and inserts the ones not seen before, keyed by
// the provider's transaction id. Synced rows are write-once: an existing
// row is never updated or re-derived. Returns only the newly inserted
// rows, so overlapping windows across repeated calls yield no duplicates.
//
// Balances are never touched here: a linked account's balance is the
// provider's authoritative figure from the account sync, not a sum of
// transactions.
func (s *Service) SyncTransactions(ctx context.Context, userID string, account *domain.Account, conn *domain.Connection, from, to time.Time) ([]*domain.Transaction, error) {
	if account.ExternalID == "" {
		return nil, fmt.Errorf("SyncTransactions: account %s is not provider-linked", account.ID)
	}

	var providerTxs []truelayer.Transaction
	err := s.withAuthRetry(ctx, conn, func(token string) error {
		var fetchErr error
		providerTxs, fetchErr = s.provider.FetchTransactions(ctx, token, account.ExternalID, from, to)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: %w", err)
	}

	var inserted []*domain.Transaction
	var skipped int
	for _, pt := range providerTxs {
		_, err := s.store.Transactions.FindByExternalID(ctx, userID, account.ID, pt.TransactionID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("SyncTransactions: dedup lookup: %w", err)
		}

		tx := s.buildTransaction(userID, account.ID, pt)
		err = s.store.Transactions.Insert(ctx, tx)
		if errors.Is(err, store.ErrDuplicate) {
			// Another sync won the race; the unique index did its job.
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("SyncTransactions: inserting %s: %w", pt.TransactionID, err)
		}
		inserted = append(inserted, tx)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Int("fetched", len(providerTxs)).
		Int("inserted", len(inserted)).
		Int("skipped", skipped).
		Time("from", from).
		Time("to", to).
		Msg("Transactions synced")

	return inserted, nil
}

// buildTransaction maps one provider transaction into a local row. The
// provider's sign is preserved as given and the type derived from it;
// the provider never supplies transfers.
func (s *Service) buildTransaction(userID, accountID string, pt truelayer.Transaction) *domain.Transaction {
	category, known := truelayer.MapTransactionCategory(pt.Category)
	if !known {
		s.log.Warn().
			Str("provider_category", pt.Category).
			Str("external_id", pt.TransactionID).
			Msg("Unknown provider transaction category, falling back to Uncategorized")
	}

	now := s.now()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		AccountID:   accountID,
		Date:        pt.Timestamp,
		Amount:      pt.Amount,
		Type:        domain.TypeForAmount(pt.Amount),
		Category:    category,
		Description: pt.Description,
		Merchant:    pt.MerchantName,
		ExternalID:  pt.TransactionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if pt.MerchantLocation != nil && pt.MerchantLocation.Address != "" {
		tx.Location = &domain.Location{Address: pt.MerchantLocation.Address}
	}
	return tx
}
