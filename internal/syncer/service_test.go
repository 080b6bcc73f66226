package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
	"github.com/ivolkov/moneyflow/internal/store"
	"github.com/ivolkov/moneyflow/internal/store/memory"
)

// fakeProvider is an in-memory aggregator double. Tokens issued by
// ExchangeCode and RefreshToken are the only ones the data methods accept;
// anything else gets a 401 DataError, like the real API.
type fakeProvider struct {
	mu sync.Mutex

	accounts     []truelayer.Account
	balances     map[string]truelayer.Balance
	transactions map[string][]truelayer.Transaction
	info         *truelayer.InstitutionInfo

	validTokens  map[string]bool
	tokenSeq     int
	refreshCalls int
	refreshErr   error

	// failBalance makes FetchBalance fail for the listed provider accounts.
	failBalance map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		balances:     make(map[string]truelayer.Balance),
		transactions: make(map[string][]truelayer.Transaction),
		validTokens:  make(map[string]bool),
		failBalance:  make(map[string]bool),
		info: &truelayer.InstitutionInfo{
			ProviderID:  "mock-bank",
			DisplayName: "Mock Bank",
			Raw:         map[string]interface{}{"provider": map[string]interface{}{"provider_id": "mock-bank"}},
		},
	}
}

func (f *fakeProvider) issueToken() truelayer.TokenResult {
	f.tokenSeq++
	access := fmt.Sprintf("access-%d", f.tokenSeq)
	f.validTokens[access] = true
	return truelayer.TokenResult{
		AccessToken:  access,
		RefreshToken: fmt.Sprintf("refresh-%d", f.tokenSeq),
		ExpiresAt:    time.Now().Add(time.Hour),
		ConsentID:    "consent-1",
	}
}

// revokeTokens invalidates every outstanding access token so the next data
// call fails with a 401.
func (f *fakeProvider) revokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validTokens = make(map[string]bool)
}

func (f *fakeProvider) checkToken(token string) error {
	if !f.validTokens[token] {
		return &truelayer.DataError{StatusCode: 401, Body: `{"error": "invalid_token"}`}
	}
	return nil
}

func (f *fakeProvider) AuthCodeURL(userID string) string {
	return "https://auth.example.com/?state=" + userID
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (truelayer.TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueToken(), nil
}

func (f *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (truelayer.TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return truelayer.TokenResult{}, f.refreshErr
	}
	return f.issueToken(), nil
}

func (f *fakeProvider) FetchInstitutionInfo(ctx context.Context, accessToken string) (*truelayer.InstitutionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkToken(accessToken); err != nil {
		return nil, err
	}
	return f.info, nil
}

func (f *fakeProvider) FetchAccounts(ctx context.Context, accessToken string) ([]truelayer.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkToken(accessToken); err != nil {
		return nil, err
	}
	return f.accounts, nil
}

func (f *fakeProvider) FetchBalance(ctx context.Context, accessToken, accountID string) (*truelayer.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkToken(accessToken); err != nil {
		return nil, err
	}
	if f.failBalance[accountID] {
		return nil, &truelayer.DataError{StatusCode: 500, Body: "balance backend down"}
	}
	balance, ok := f.balances[accountID]
	if !ok {
		return nil, &truelayer.DataError{StatusCode: 404, Body: "no such account"}
	}
	return &balance, nil
}

func (f *fakeProvider) FetchTransactions(ctx context.Context, accessToken, accountID string, from, to time.Time) ([]truelayer.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkToken(accessToken); err != nil {
		return nil, err
	}
	var out []truelayer.Transaction
	for _, tx := range f.transactions[accountID] {
		if tx.Timestamp.Before(from) || tx.Timestamp.After(to.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeProvider, *store.Store) {
	t.Helper()
	st := memory.New()
	provider := newFakeProvider()
	svc := NewService(st, provider, zerolog.Nop(), 30)
	return svc, provider, st
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHandleCallback(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{
			AccountID:     "tl-acc-1",
			DisplayName:   "Current Account",
			AccountType:   "TRANSACTION",
			Currency:      "GBP",
			AccountNumber: &truelayer.AccountNumber{Last4: "1234"},
		},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("1500.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "auth-code")
	require.NoError(t, err)

	conn := result.Connection
	assert.Equal(t, "user-1", conn.UserID)
	assert.Equal(t, ProviderName, conn.Provider)
	assert.Equal(t, "mock-bank", conn.InstitutionID)
	assert.Equal(t, "Mock Bank", conn.InstitutionName)
	assert.Equal(t, domain.ConnectionActive, conn.Status)
	assert.Equal(t, "consent-1", conn.ConsentID)
	assert.NotEmpty(t, conn.AccessToken)
	assert.NotEmpty(t, conn.RefreshToken)

	require.Len(t, result.Accounts, 1)
	account := result.Accounts[0]
	assert.Equal(t, "Current Account", account.Name)
	assert.Equal(t, domain.AccountBank, account.Type)
	assert.Equal(t, "Mock Bank", account.Institution)
	assert.Equal(t, "****1234", account.AccountNumber)
	assert.Equal(t, "1500", account.Balance.String())
	assert.Equal(t, conn.ID, account.ConnectionID)
	assert.Equal(t, "tl-acc-1", account.ExternalID)

	// Accounts only on callback; transactions wait for an explicit sync.
	txs, err := st.Transactions.List(ctx, "user-1", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestHandleCallback_ReauthUpdatesInPlace(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	first, err := svc.HandleCallback(ctx, "user-1", "code-1")
	require.NoError(t, err)

	second, err := svc.HandleCallback(ctx, "user-1", "code-2")
	require.NoError(t, err)

	assert.Equal(t, first.Connection.ID, second.Connection.ID, "same institution must reuse the connection record")
	assert.NotEqual(t, first.Connection.AccessToken, second.Connection.AccessToken)

	conns, err := st.Connections.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestSyncAccounts_IdempotentAndPreservesEdits(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)
	account := result.Accounts[0]

	// User renames the account locally; provider balance moves.
	account.Name = "My Main Account"
	require.NoError(t, st.Accounts.Update(ctx, account))
	provider.mu.Lock()
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("250.50"), Currency: "GBP"}
	provider.mu.Unlock()

	syncResult, err := svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, syncResult.Accounts, 1)

	got, err := st.Accounts.GetByID(ctx, "user-1", account.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Main Account", got.Name, "user edits survive resync")
	assert.Equal(t, "250.5", got.Balance.String(), "provider balance is authoritative")

	accounts, err := st.Accounts.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "resync must not duplicate accounts")
}

func TestSyncConnection_TransactionDedupAcrossOverlappingWindows(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}
	provider.transactions["tl-acc-1"] = []truelayer.Transaction{
		{
			TransactionID: "tl-tx-1",
			Timestamp:     time.Now().AddDate(0, 0, -5),
			Amount:        dec("-42.50"),
			Description:   "COFFEE SHOP",
			Category:      "FOOD_AND_DRINK",
			MerchantName:  "Coffee Shop",
		},
		{
			TransactionID: "tl-tx-2",
			Timestamp:     time.Now().AddDate(0, 0, -3),
			Amount:        dec("500.00"),
			Description:   "SALARY",
			Category:      "INCOME",
		},
	}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	first, err := svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.TransactionCount)

	second, err := svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.TransactionCount, "overlapping window must insert nothing")

	txs, err := st.Transactions.List(ctx, "user-1", store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	byExternal := map[string]*domain.Transaction{}
	for _, tx := range txs {
		byExternal[tx.ExternalID] = tx
	}

	coffee := byExternal["tl-tx-1"]
	require.NotNil(t, coffee)
	assert.Equal(t, "-42.5", coffee.Amount.String(), "provider sign preserved")
	assert.Equal(t, domain.TransactionExpense, coffee.Type)
	assert.Equal(t, "Food & Dining", coffee.Category)
	assert.Equal(t, "Coffee Shop", coffee.Merchant)

	salary := byExternal["tl-tx-2"]
	require.NotNil(t, salary)
	assert.Equal(t, "500", salary.Amount.String())
	assert.Equal(t, domain.TransactionIncome, salary.Type)

	// Linked-account balance stays provider-authoritative; inserting
	// transactions must not move it.
	account, err := st.Accounts.GetByID(ctx, "user-1", coffee.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "100", account.Balance.String())
}

func TestSyncConnection_UnknownCategoryFallsBack(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}
	provider.transactions["tl-acc-1"] = []truelayer.Transaction{
		{TransactionID: "tl-tx-1", Timestamp: time.Now().AddDate(0, 0, -1), Amount: dec("-10.00"), Category: "BRAND_NEW_TAXONOMY"},
	}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	_, err = svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	txs, err := st.Transactions.List(ctx, "user-1", store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, truelayer.FallbackCategory, txs[0].Category)
}

func TestEnsureFreshToken(t *testing.T) {
	t.Run("valid token is used without refresh", func(t *testing.T) {
		svc, provider, _ := newTestService(t)
		ctx := context.Background()

		result, err := svc.HandleCallback(ctx, "user-1", "code")
		require.NoError(t, err)

		token, err := svc.EnsureFreshToken(ctx, result.Connection)
		require.NoError(t, err)
		assert.Equal(t, result.Connection.AccessToken, token)
		assert.Equal(t, 0, provider.refreshCalls)
	})

	t.Run("expired token triggers exactly one refresh", func(t *testing.T) {
		svc, provider, st := newTestService(t)
		ctx := context.Background()

		result, err := svc.HandleCallback(ctx, "user-1", "code")
		require.NoError(t, err)
		conn := result.Connection

		// Move the clock past the stored expiry.
		svc.now = func() time.Time { return conn.ExpiresAt.Add(time.Minute) }

		old := conn.AccessToken
		token, err := svc.EnsureFreshToken(ctx, conn)
		require.NoError(t, err)
		assert.NotEqual(t, old, token)
		assert.Equal(t, 1, provider.refreshCalls)

		// The refreshed grant must be persisted.
		stored, err := st.Connections.GetByID(ctx, "user-1", conn.ID)
		require.NoError(t, err)
		assert.Equal(t, token, stored.AccessToken)
	})

	t.Run("rejected grant marks the connection expired", func(t *testing.T) {
		svc, provider, st := newTestService(t)
		ctx := context.Background()

		result, err := svc.HandleCallback(ctx, "user-1", "code")
		require.NoError(t, err)
		conn := result.Connection

		provider.refreshErr = &truelayer.AuthError{StatusCode: 400, Body: `{"error": "invalid_grant"}`}
		svc.now = func() time.Time { return conn.ExpiresAt.Add(time.Minute) }

		_, err = svc.EnsureFreshToken(ctx, conn)
		require.Error(t, err)

		var refreshErr *ConnectionRefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, conn.ID, refreshErr.ConnectionID)

		stored, err := st.Connections.GetByID(ctx, "user-1", conn.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionExpired, stored.Status, "invalid grant means the consent is gone")
	})

	t.Run("transient refresh failure marks the connection errored", func(t *testing.T) {
		svc, provider, st := newTestService(t)
		ctx := context.Background()

		result, err := svc.HandleCallback(ctx, "user-1", "code")
		require.NoError(t, err)
		conn := result.Connection

		provider.refreshErr = errors.New("connection reset by peer")
		svc.now = func() time.Time { return conn.ExpiresAt.Add(time.Minute) }

		_, err = svc.EnsureFreshToken(ctx, conn)
		require.Error(t, err)

		var refreshErr *ConnectionRefreshError
		require.ErrorAs(t, err, &refreshErr)

		stored, err := st.Connections.GetByID(ctx, "user-1", conn.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionError, stored.Status)
	})
}

func TestWithAuthRetry_RefreshesOnceOn401(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	// The stored token still looks fresh locally but the provider has
	// revoked it server-side. The engine must refresh once and retry.
	provider.revokeTokens()

	syncResult, err := svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.refreshCalls)
	assert.Equal(t, 1, syncResult.AccountsTotal)
	assert.Equal(t, 0, syncResult.AccountsFailed)
}

func TestSyncConnection_PartialFailure(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Good Account", AccountType: "TRANSACTION", Currency: "GBP"},
		{AccountID: "tl-acc-2", DisplayName: "Bad Account", AccountType: "SAVINGS", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}
	provider.failBalance["tl-acc-2"] = true

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	// The failing account is skipped during callback's account sync; the
	// healthy one still makes it through.
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, "Good Account", result.Accounts[0].Name)

	// An explicit sync reports the failure instead of hiding it: one of
	// two accounts synced.
	syncResult, err := svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, syncResult.AccountsTotal)
	assert.Equal(t, 1, syncResult.AccountsFailed)
	require.Len(t, syncResult.Accounts, 1)
	assert.Equal(t, "Good Account", syncResult.Accounts[0].Name)
}

func TestWithAuthRetry_ConcurrentSiblingsShareOneRefresh(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)
	conn := result.Connection

	// Both goroutines see the same server-side-revoked token and hit a
	// 401 together; renewal must collapse into a single refresh grant,
	// with the loser reusing the winner's token.
	provider.revokeTokens()

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = svc.withAuthRetry(ctx, conn, func(token string) error {
				_, err := provider.FetchAccounts(ctx, token)
				return err
			})
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, provider.refreshCalls, "concurrent 401s must share one refresh grant")
	assert.Equal(t, domain.ConnectionActive, conn.Status)
}

// statusRecorder wraps a connection repository and records every status
// written through Update.
type statusRecorder struct {
	store.ConnectionRepository

	mu       sync.Mutex
	statuses []domain.ConnectionStatus
}

func (r *statusRecorder) Update(ctx context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, conn.Status)
	r.mu.Unlock()
	return r.ConnectionRepository.Update(ctx, conn)
}

func TestDeleteConnection_MarksRevokedBeforeCascade(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	recorder := &statusRecorder{ConnectionRepository: st.Connections}
	st.Connections = recorder

	require.NoError(t, svc.DeleteConnection(ctx, "user-1", result.Connection.ID))

	assert.Contains(t, recorder.statuses, domain.ConnectionRevoked, "delete must persist the revoked status before cascading")
	_, err = st.Connections.GetByID(ctx, "user-1", result.Connection.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSyncTransactions_RequiresLinkedAccount(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	manual := &domain.Account{
		ID:       "acc-manual",
		UserID:   "user-1",
		Name:     "Wallet",
		Type:     domain.AccountCash,
		Currency: "GBP",
		IsActive: true,
	}
	require.NoError(t, st.Accounts.Insert(ctx, manual))

	conn := &domain.Connection{ID: "conn-1", UserID: "user-1", Provider: ProviderName}
	_, err := svc.SyncTransactions(ctx, "user-1", manual, conn, time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not provider-linked")
}

func TestDeleteConnection_Cascades(t *testing.T) {
	svc, provider, st := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}
	provider.transactions["tl-acc-1"] = []truelayer.Transaction{
		{TransactionID: "tl-tx-1", Timestamp: time.Now().AddDate(0, 0, -2), Amount: dec("-5.00"), Category: "FOOD_AND_DRINK"},
	}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)
	_, err = svc.SyncConnection(ctx, "user-1", result.Connection.ID, time.Time{}, time.Time{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConnection(ctx, "user-1", result.Connection.ID))

	_, err = st.Connections.GetByID(ctx, "user-1", result.Connection.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	accounts, err := st.Accounts.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	txs, err := st.Transactions.List(ctx, "user-1", store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGetAuthorizationURL(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Contains(t, svc.GetAuthorizationURL("user-7"), "state=user-7")
}

func TestConnectionIsolationBetweenUsers(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	provider.accounts = []truelayer.Account{
		{AccountID: "tl-acc-1", DisplayName: "Current Account", AccountType: "TRANSACTION", Currency: "GBP"},
	}
	provider.balances["tl-acc-1"] = truelayer.Balance{Current: dec("100.00"), Currency: "GBP"}

	result, err := svc.HandleCallback(ctx, "user-1", "code")
	require.NoError(t, err)

	_, err = svc.GetConnection(ctx, "user-2", result.Connection.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound), "other users must not see the connection")

	err = svc.DeleteConnection(ctx, "user-2", result.Connection.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
