package truelayer

import (
	"github.com/ivolkov/moneyflow/internal/domain"
)

// FallbackCategory is assigned to transactions whose provider category is
// not in the lookup table. Provider taxonomies evolve; an unknown value
// must degrade, never block a sync.
const FallbackCategory = "Uncategorized"

var accountTypeMap = map[string]domain.AccountType{
	"TRANSACTION": domain.AccountBank,
	"SAVINGS":     domain.AccountBank,
	"CREDIT_CARD": domain.AccountCredit,
	"LOAN":        domain.AccountLoan,
	"MORTGAGE":    domain.AccountLoan,
	"INVESTMENT":  domain.AccountInvestment,
	"PENSION":     domain.AccountInvestment,
}

var categoryMap = map[string]string{
	"BILLS_AND_SERVICES":      "Bills",
	"ENTERTAINMENT":           "Entertainment",
	"EXPENSES":                "Miscellaneous",
	"FAMILY":                  "Family",
	"FOOD_AND_DRINK":          "Food & Dining",
	"GENERAL":                 "Miscellaneous",
	"INCOME":                  "Income",
	"PAYMENTS":                "Transfers",
	"SAVINGS_AND_INVESTMENTS": "Investments",
	"SHOPPING":                "Shopping",
	"TRANSPORT":               "Transportation",
	"TRAVEL":                  "Travel",
}

// MapAccountType translates a provider account type into the internal
// vocabulary. Total: unknown input maps to AccountOther, with known=false
// so callers can log the fallback.
func MapAccountType(providerType string) (mapped domain.AccountType, known bool) {
	if t, ok := accountTypeMap[providerType]; ok {
		return t, true
	}
	return domain.AccountOther, false
}

// MapTransactionCategory translates a provider transaction category into
// the internal category vocabulary. Total: unknown input maps to
// FallbackCategory, with known=false so callers can log the fallback.
func MapTransactionCategory(providerCategory string) (mapped string, known bool) {
	if c, ok := categoryMap[providerCategory]; ok {
		return c, true
	}
	return FallbackCategory, false
}
