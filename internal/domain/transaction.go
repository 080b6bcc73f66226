package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a financial movement.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Location is an optional place attached to a transaction.
type Location struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Transaction is one financial movement.
//
// Amount is always stored signed: negative is an outflow. Synced rows keep
// the provider's sign as given and derive Type from it; manual entry accepts
// an unsigned magnitude plus a type and stores the signed value. The balance
// ledger applies the signed amount directly, one rule for every path.
type Transaction struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`

	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Type   TransactionType `json:"type"`

	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Description string `json:"description,omitempty"`
	Merchant    string `json:"merchant,omitempty"`

	// ExternalID is the aggregator's stable transaction identifier, present
	// only for provider-sourced rows. Unique per account when present; the
	// sole deduplication key for synced data.
	ExternalID string `json:"externalId,omitempty"`

	IsRecurring bool      `json:"isRecurring"`
	Tags        []string  `json:"tags,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Location    *Location `json:"location,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Transaction) Touch(now time.Time) {
	t.UpdatedAt = now
}

// Synced reports whether the transaction was sourced from the provider.
// Synced rows are write-once and never drive balance adjustments.
func (t *Transaction) Synced() bool {
	return t.ExternalID != ""
}

// SignedAmount returns the signed amount implied by an unsigned magnitude
// and a transaction type: expenses are stored negative, everything else
// keeps the magnitude's sign.
func SignedAmount(magnitude decimal.Decimal, typ TransactionType) decimal.Decimal {
	if typ == TransactionExpense {
		return magnitude.Abs().Neg()
	}
	return magnitude.Abs()
}

// TypeForAmount derives the transaction type from a signed amount. The
// provider does not supply transfers, so the split is strictly by sign.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionExpense
	}
	return TransactionIncome
}
