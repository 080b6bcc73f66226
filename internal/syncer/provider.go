package syncer

import (
	"context"
	"time"

	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
)

// ProviderName identifies the aggregator on stored connections.
const ProviderName = "truelayer"

// Provider is the aggregator surface the engine consumes. Satisfied by
// *truelayer.Client; tests substitute a fake.
type Provider interface {
	AuthCodeURL(userID string) string
	ExchangeCode(ctx context.Context, code string) (truelayer.TokenResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (truelayer.TokenResult, error)
	FetchInstitutionInfo(ctx context.Context, accessToken string) (*truelayer.InstitutionInfo, error)
	FetchAccounts(ctx context.Context, accessToken string) ([]truelayer.Account, error)
	FetchBalance(ctx context.Context, accessToken, accountID string) (*truelayer.Balance, error)
	FetchTransactions(ctx context.Context, accessToken, accountID string, from, to time.Time) ([]truelayer.Transaction, error)
}
