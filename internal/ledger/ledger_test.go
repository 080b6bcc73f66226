package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/store"
	"github.com/ivolkov/moneyflow/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := memory.New()
	return NewService(st, zerolog.Nop()), st
}

func mustAccount(t *testing.T, svc *Service, userID, name, balance string) *domain.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), userID, AccountInput{
		Name:     name,
		Type:     domain.AccountBank,
		Balance:  dec(balance),
		Currency: "GBP",
	})
	require.NoError(t, err)
	return account
}

func balanceOf(t *testing.T, st *store.Store, userID, accountID string) string {
	t.Helper()
	account, err := st.Accounts.GetByID(context.Background(), userID, accountID)
	require.NoError(t, err)
	return account.Balance.String()
}

func TestCreateTransaction_BalanceEffects(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		txType      domain.TransactionType
		wantAmount  string
		wantBalance string
	}{
		{name: "expense reduces balance", amount: "25.50", txType: domain.TransactionExpense, wantAmount: "-25.5", wantBalance: "74.5"},
		{name: "negative magnitude is normalized", amount: "-25.50", txType: domain.TransactionExpense, wantAmount: "-25.5", wantBalance: "74.5"},
		{name: "income raises balance", amount: "200.00", txType: domain.TransactionIncome, wantAmount: "200", wantBalance: "300"},
		{name: "transfer leaves balance alone", amount: "40.00", txType: domain.TransactionTransfer, wantAmount: "40", wantBalance: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestLedger(t)
			account := mustAccount(t, svc, "user-1", "Wallet", "100.00")

			tx, err := svc.CreateTransaction(context.Background(), "user-1", CreateInput{
				AccountID: account.ID,
				Date:      time.Now(),
				Amount:    dec(tt.amount),
				Type:      tt.txType,
				Category:  "Miscellaneous",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantAmount, tx.Amount.String())
			assert.Equal(t, tt.wantBalance, balanceOf(t, st, "user-1", account.ID))
		})
	}
}

func TestUpdateTransaction_ReversesThenApplies(t *testing.T) {
	svc, st := newTestLedger(t)
	ctx := context.Background()
	account := mustAccount(t, svc, "user-1", "Wallet", "100.00")

	tx, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
		AccountID: account.ID,
		Date:      time.Now(),
		Amount:    dec("10.00"),
		Type:      domain.TransactionExpense,
	})
	require.NoError(t, err)
	require.Equal(t, "90", balanceOf(t, st, "user-1", account.ID))

	newAmount := dec("15.00")
	updated, err := svc.UpdateTransaction(ctx, "user-1", tx.ID, UpdateInput{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, "-15", updated.Amount.String())
	assert.Equal(t, "85", balanceOf(t, st, "user-1", account.ID))

	require.NoError(t, svc.DeleteTransaction(ctx, "user-1", tx.ID))
	assert.Equal(t, "100", balanceOf(t, st, "user-1", account.ID))

	_, err = st.Transactions.GetByID(ctx, "user-1", tx.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateTransaction_TypeFlip(t *testing.T) {
	svc, st := newTestLedger(t)
	ctx := context.Background()
	account := mustAccount(t, svc, "user-1", "Wallet", "100.00")

	tx, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
		AccountID: account.ID,
		Date:      time.Now(),
		Amount:    dec("30.00"),
		Type:      domain.TransactionExpense,
	})
	require.NoError(t, err)
	require.Equal(t, "70", balanceOf(t, st, "user-1", account.ID))

	income := domain.TransactionIncome
	updated, err := svc.UpdateTransaction(ctx, "user-1", tx.ID, UpdateInput{Type: &income})
	require.NoError(t, err)
	assert.Equal(t, "30", updated.Amount.String())
	assert.Equal(t, "130", balanceOf(t, st, "user-1", account.ID))
}

func TestUpdateTransaction_Reassignment(t *testing.T) {
	svc, st := newTestLedger(t)
	ctx := context.Background()
	accountA := mustAccount(t, svc, "user-1", "Wallet A", "100.00")
	accountB := mustAccount(t, svc, "user-1", "Wallet B", "100.00")

	tx, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
		AccountID: accountA.ID,
		Date:      time.Now(),
		Amount:    dec("20.00"),
		Type:      domain.TransactionExpense,
	})
	require.NoError(t, err)
	require.Equal(t, "80", balanceOf(t, st, "user-1", accountA.ID))

	updated, err := svc.UpdateTransaction(ctx, "user-1", tx.ID, UpdateInput{AccountID: &accountB.ID})
	require.NoError(t, err)
	assert.Equal(t, accountB.ID, updated.AccountID)

	assert.Equal(t, "100", balanceOf(t, st, "user-1", accountA.ID), "old account restored")
	assert.Equal(t, "80", balanceOf(t, st, "user-1", accountB.ID), "new account charged")
}

func TestUpdateTransaction_ReassignmentToForeignAccount(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()
	accountA := mustAccount(t, svc, "user-1", "Wallet A", "100.00")
	foreign := mustAccount(t, svc, "user-2", "Not Yours", "100.00")

	tx, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
		AccountID: accountA.ID,
		Date:      time.Now(),
		Amount:    dec("20.00"),
		Type:      domain.TransactionExpense,
	})
	require.NoError(t, err)

	_, err = svc.UpdateTransaction(ctx, "user-1", tx.ID, UpdateInput{AccountID: &foreign.ID})
	require.Error(t, err)

	var invariantErr *BalanceInvariantError
	require.ErrorAs(t, err, &invariantErr)
	assert.Equal(t, foreign.ID, invariantErr.AccountID)
}

func TestSyncedTransactionsAreImmutable(t *testing.T) {
	svc, st := newTestLedger(t)
	ctx := context.Background()
	account := mustAccount(t, svc, "user-1", "Linked", "500.00")

	synced := &domain.Transaction{
		ID:         "tx-synced",
		UserID:     "user-1",
		AccountID:  account.ID,
		Date:       time.Now(),
		Amount:     dec("-42.50"),
		Type:       domain.TransactionExpense,
		Category:   "Food & Dining",
		ExternalID: "tl-tx-1",
	}
	require.NoError(t, st.Transactions.Insert(ctx, synced))

	newAmount := dec("99.00")
	_, err := svc.UpdateTransaction(ctx, "user-1", synced.ID, UpdateInput{Amount: &newAmount})
	assert.True(t, errors.Is(err, ErrSyncedImmutable))

	// Deleting a synced row removes it without touching the balance.
	require.NoError(t, svc.DeleteTransaction(ctx, "user-1", synced.ID))
	assert.Equal(t, "500", balanceOf(t, st, "user-1", account.ID))
}

func TestDeleteTransaction_MissingAccountViolatesInvariant(t *testing.T) {
	svc, st := newTestLedger(t)
	ctx := context.Background()

	orphan := &domain.Transaction{
		ID:        "tx-orphan",
		UserID:    "user-1",
		AccountID: "gone",
		Date:      time.Now(),
		Amount:    dec("-10.00"),
		Type:      domain.TransactionExpense,
	}
	require.NoError(t, st.Transactions.Insert(ctx, orphan))

	err := svc.DeleteTransaction(ctx, "user-1", orphan.ID)
	require.Error(t, err)

	var invariantErr *BalanceInvariantError
	require.ErrorAs(t, err, &invariantErr)

	// The failed mutation must not have removed the row.
	_, err = st.Transactions.GetByID(ctx, "user-1", orphan.ID)
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	t.Run("cascades to transactions", func(t *testing.T) {
		svc, st := newTestLedger(t)
		ctx := context.Background()
		account := mustAccount(t, svc, "user-1", "Wallet", "100.00")

		for i := 0; i < 3; i++ {
			_, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
				AccountID: account.ID,
				Date:      time.Now(),
				Amount:    dec("5.00"),
				Type:      domain.TransactionExpense,
			})
			require.NoError(t, err)
		}

		require.NoError(t, svc.DeleteAccount(ctx, "user-1", account.ID))

		_, err := st.Accounts.GetByID(ctx, "user-1", account.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound))

		txs, err := st.Transactions.List(ctx, "user-1", store.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("refuses linked accounts", func(t *testing.T) {
		svc, st := newTestLedger(t)
		ctx := context.Background()

		linked := &domain.Account{
			ID:           "acc-linked",
			UserID:       "user-1",
			Name:         "Linked Current",
			Type:         domain.AccountBank,
			Currency:     "GBP",
			IsActive:     true,
			ConnectionID: "conn-1",
			ExternalID:   "tl-acc-1",
		}
		require.NoError(t, st.Accounts.Insert(ctx, linked))

		err := svc.DeleteAccount(ctx, "user-1", linked.ID)
		assert.True(t, errors.Is(err, store.ErrAccountLinked))
	})
}

func TestListTransactions_Filter(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()
	account := mustAccount(t, svc, "user-1", "Wallet", "1000.00")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := svc.CreateTransaction(ctx, "user-1", CreateInput{
			AccountID: account.ID,
			Date:      base.AddDate(0, 0, i),
			Amount:    dec("10.00"),
			Type:      domain.TransactionExpense,
			Category:  "Shopping",
		})
		require.NoError(t, err)
	}

	all, err := svc.ListTransactions(ctx, "user-1", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	windowed, err := svc.ListTransactions(ctx, "user-1", store.TransactionFilter{
		Start: base.AddDate(0, 0, 1),
		End:   base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 3)

	limited, err := svc.ListTransactions(ctx, "user-1", store.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := svc.ListTransactions(ctx, "user-2", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
