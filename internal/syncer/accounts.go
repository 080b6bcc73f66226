package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
	"github.com/ivolkov/moneyflow/internal/store"
)

// SyncAccounts reconciles the provider's current account list against the
// locally stored accounts for a connection: new provider accounts become
// local accounts, known ones get their balance and last-synced timestamp
// updated. Absence does not imply deletion; nothing is ever removed here.
// Running this twice against an unchanged provider state is a no-op beyond
// timestamp refreshes. Accounts that fail individually are skipped and
// reported through the failed count, so callers can surface partial
// success.
func (s *Service) SyncAccounts(ctx context.Context, userID string, conn *domain.Connection) (accounts []*domain.Account, failed int, err error) {
	var providerAccounts []truelayer.Account
	err = s.withAuthRetry(ctx, conn, func(token string) error {
		var fetchErr error
		providerAccounts, fetchErr = s.provider.FetchAccounts(ctx, token)
		return fetchErr
	})
	if err != nil {
		return nil, 0, fmt.Errorf("SyncAccounts: %w", err)
	}

	// Balance fetches are independent across accounts; fan out. Each
	// account's own create-or-update stays within its goroutine, so no
	// account is written concurrently with itself.
	synced := make([]*domain.Account, len(providerAccounts))
	accessToken := conn.AccessToken

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accountConcurrency)
	for i, pa := range providerAccounts {
		i, pa := i, pa
		g.Go(func() error {
			account, err := s.syncOneAccount(gctx, userID, conn, accessToken, pa)
			if err != nil {
				s.log.Warn().
					Err(err).
					Str("connection_id", conn.ID).
					Str("provider_account_id", pa.AccountID).
					Msg("Account sync failed, continuing with siblings")
				return nil
			}
			synced[i] = account
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("SyncAccounts: %w", err)
	}

	accounts = make([]*domain.Account, 0, len(synced))
	for _, account := range synced {
		if account != nil {
			accounts = append(accounts, account)
		}
	}
	failed = len(providerAccounts) - len(accounts)

	now := s.now()
	conn.LastSynced = now
	conn.Touch(now)
	if err := s.store.Connections.Update(ctx, conn); err != nil {
		return nil, 0, fmt.Errorf("SyncAccounts: updating connection: %w", err)
	}

	s.log.Info().
		Str("connection_id", conn.ID).
		Int("provider_accounts", len(providerAccounts)).
		Int("synced", len(accounts)).
		Int("failed", failed).
		Msg("Accounts synced")

	return accounts, failed, nil
}

func (s *Service) syncOneAccount(ctx context.Context, userID string, conn *domain.Connection, accessToken string, pa truelayer.Account) (*domain.Account, error) {
	balance, err := s.provider.FetchBalance(ctx, accessToken, pa.AccountID)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}

	now := s.now()

	account, err := s.store.Accounts.FindByExternalID(ctx, userID, conn.ID, pa.AccountID)
	switch {
	case err == nil:
		// Known account: the provider's balance is authoritative, but
		// name/type/institution stay as the user may have edited them.
		account.Balance = balance.Current
		account.LastSynced = now
		account.Touch(now)
		if err := s.store.Accounts.Update(ctx, account); err != nil {
			return nil, fmt.Errorf("updating account: %w", err)
		}
		return account, nil

	case errors.Is(err, store.ErrNotFound):
		accountType, known := truelayer.MapAccountType(pa.AccountType)
		if !known {
			s.log.Warn().
				Str("provider_account_type", pa.AccountType).
				Str("provider_account_id", pa.AccountID).
				Msg("Unknown provider account type, falling back to other")
		}

		account = &domain.Account{
			ID:           uuid.New().String(),
			UserID:       userID,
			Name:         pa.DisplayName,
			Type:         accountType,
			Institution:  conn.InstitutionName,
			Balance:      balance.Current,
			Currency:     pa.Currency,
			IsActive:     true,
			ConnectionID: conn.ID,
			ExternalID:   pa.AccountID,
			LastSynced:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if pa.AccountNumber != nil && pa.AccountNumber.Last4 != "" {
			account.AccountNumber = "****" + pa.AccountNumber.Last4
		}
		if err := s.store.Accounts.Insert(ctx, account); err != nil {
			return nil, fmt.Errorf("inserting account: %w", err)
		}
		return account, nil

	default:
		return nil, fmt.Errorf("looking up account: %w", err)
	}
}
