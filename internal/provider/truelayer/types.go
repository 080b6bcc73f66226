package truelayer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TokenResult is the outcome of a code exchange or a token refresh.
// ExpiresAt is absolute, computed once at grant time.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	ConsentID    string
}

// InstitutionInfo identifies the institution behind a token's consent.
// Raw carries the provider's full info payload for storage as opaque
// connection metadata.
type InstitutionInfo struct {
	ProviderID  string
	DisplayName string
	Raw         map[string]interface{}
}

// AccountNumber is the optional account-number block on a provider account.
// Only the last four digits are ever surfaced.
type AccountNumber struct {
	Last4 string `json:"last_4_digits"`
}

// Account is one account record as returned by the provider.
// AccountID is required; everything else may be absent.
type Account struct {
	AccountID     string         `json:"account_id"`
	DisplayName   string         `json:"display_name"`
	AccountType   string         `json:"account_type"`
	Currency      string         `json:"currency"`
	AccountNumber *AccountNumber `json:"account_number,omitempty"`
}

func (a *Account) validate() error {
	if a.AccountID == "" {
		return fmt.Errorf("provider account missing account_id")
	}
	return nil
}

// Balance is the provider's balance record for one account.
type Balance struct {
	Current   decimal.Decimal `json:"current"`
	Available decimal.Decimal `json:"available"`
	Currency  string          `json:"currency"`
}

// MerchantLocation is the optional merchant-location block on a provider
// transaction.
type MerchantLocation struct {
	Address string `json:"address"`
}

// Transaction is one transaction record as returned by the provider.
// TransactionID is required and stable; it is the sync dedup key. The
// amount keeps the provider's sign: negative is an outflow.
type Transaction struct {
	TransactionID    string            `json:"transaction_id"`
	Timestamp        time.Time         `json:"timestamp"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Description      string            `json:"description"`
	Category         string            `json:"transaction_category"`
	MerchantName     string            `json:"merchant_name,omitempty"`
	MerchantLocation *MerchantLocation `json:"merchant_location,omitempty"`
}

func (t *Transaction) validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("provider transaction missing transaction_id")
	}
	return nil
}

// AuthError means an OAuth exchange or refresh failed. Body carries the
// provider's raw error response for diagnostics.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("truelayer auth error (status %d): %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DataError means a data GET failed after a valid token. Distinct from
// AuthError so callers can decide whether to refresh and retry once.
type DataError struct {
	StatusCode int
	Body       string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("truelayer data error (status %d): %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether the failure looked like an auth problem,
// i.e. worth a single refresh-and-retry.
func (e *DataError) Unauthorized() bool {
	return e.StatusCode == 401
}
