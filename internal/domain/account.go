package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the internal account-type vocabulary.
type AccountType string

const (
	AccountBank       AccountType = "bank"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountLoan       AccountType = "loan"
	AccountCash       AccountType = "cash"
	AccountOther      AccountType = "other"
)

// Account is a financial account, either manually entered or linked to a
// Connection. A linked account's balance is the provider's authoritative
// value at last sync; an unlinked account's balance is maintained by the
// balance ledger rules from transaction effects.
type Account struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Institution string          `json:"institution,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	IsActive    bool            `json:"isActive"`

	// AccountNumber holds a masked suffix only, e.g. "****1234".
	AccountNumber string `json:"accountNumber,omitempty"`

	// ConnectionID is set when the account is owned by a bank connection.
	ConnectionID string `json:"connectionId,omitempty"`

	// ExternalID is the provider's stable account identifier, present only
	// for linked accounts. It is the lookup key during account sync.
	ExternalID string `json:"externalId,omitempty"`

	LastSynced time.Time `json:"lastSynced,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Linked reports whether the account is owned by a bank connection.
func (a *Account) Linked() bool {
	return a.ConnectionID != ""
}

// Touch updates the UpdatedAt timestamp.
func (a *Account) Touch(now time.Time) {
	a.UpdatedAt = now
}
