package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivolkov/moneyflow/internal/domain"
)

// Row types map domain entities into their stored document shape. Money is
// stored as a decimal string to avoid float drift; conversion happens only
// here, at the storage boundary.

type connectionRow struct {
	ID              string                 `bson:"_id"`
	UserID          string                 `bson:"user_id"`
	Provider        string                 `bson:"provider"`
	AccessToken     string                 `bson:"access_token"`
	RefreshToken    string                 `bson:"refresh_token"`
	ExpiresAt       time.Time              `bson:"expires_at"`
	InstitutionID   string                 `bson:"institution_id"`
	InstitutionName string                 `bson:"institution_name"`
	Status          string                 `bson:"status"`
	ConsentID       string                 `bson:"consent_id,omitempty"`
	LastSynced      time.Time              `bson:"last_synced"`
	Metadata        map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt       time.Time              `bson:"created_at"`
	UpdatedAt       time.Time              `bson:"updated_at"`
}

func connectionToRow(c *domain.Connection) *connectionRow {
	return &connectionRow{
		ID:              c.ID,
		UserID:          c.UserID,
		Provider:        c.Provider,
		AccessToken:     c.AccessToken,
		RefreshToken:    c.RefreshToken,
		ExpiresAt:       c.ExpiresAt,
		InstitutionID:   c.InstitutionID,
		InstitutionName: c.InstitutionName,
		Status:          string(c.Status),
		ConsentID:       c.ConsentID,
		LastSynced:      c.LastSynced,
		Metadata:        c.Metadata,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (r *connectionRow) toDomain() *domain.Connection {
	return &domain.Connection{
		ID:              r.ID,
		UserID:          r.UserID,
		Provider:        r.Provider,
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		ExpiresAt:       r.ExpiresAt,
		InstitutionID:   r.InstitutionID,
		InstitutionName: r.InstitutionName,
		Status:          domain.ConnectionStatus(r.Status),
		ConsentID:       r.ConsentID,
		LastSynced:      r.LastSynced,
		Metadata:        r.Metadata,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type accountRow struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"user_id"`
	Name          string    `bson:"name"`
	Type          string    `bson:"type"`
	Institution   string    `bson:"institution,omitempty"`
	Balance       string    `bson:"balance"`
	Currency      string    `bson:"currency"`
	IsActive      bool      `bson:"is_active"`
	AccountNumber string    `bson:"account_number,omitempty"`
	ConnectionID  string    `bson:"connection_id,omitempty"`
	ExternalID    string    `bson:"external_id,omitempty"`
	LastSynced    time.Time `bson:"last_synced,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func accountToRow(a *domain.Account) *accountRow {
	return &accountRow{
		ID:            a.ID,
		UserID:        a.UserID,
		Name:          a.Name,
		Type:          string(a.Type),
		Institution:   a.Institution,
		Balance:       a.Balance.String(),
		Currency:      a.Currency,
		IsActive:      a.IsActive,
		AccountNumber: a.AccountNumber,
		ConnectionID:  a.ConnectionID,
		ExternalID:    a.ExternalID,
		LastSynced:    a.LastSynced,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (r *accountRow) toDomain() (*domain.Account, error) {
	balance, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("account %s: parsing balance %q: %w", r.ID, r.Balance, err)
	}
	return &domain.Account{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		Type:          domain.AccountType(r.Type),
		Institution:   r.Institution,
		Balance:       balance,
		Currency:      r.Currency,
		IsActive:      r.IsActive,
		AccountNumber: r.AccountNumber,
		ConnectionID:  r.ConnectionID,
		ExternalID:    r.ExternalID,
		LastSynced:    r.LastSynced,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

type locationRow struct {
	Latitude  float64 `bson:"latitude,omitempty"`
	Longitude float64 `bson:"longitude,omitempty"`
	Address   string  `bson:"address,omitempty"`
}

type transactionRow struct {
	ID          string       `bson:"_id"`
	UserID      string       `bson:"user_id"`
	AccountID   string       `bson:"account_id"`
	Date        time.Time    `bson:"date"`
	Amount      string       `bson:"amount"`
	Type        string       `bson:"type"`
	Category    string       `bson:"category"`
	Subcategory string       `bson:"subcategory,omitempty"`
	Description string       `bson:"description,omitempty"`
	Merchant    string       `bson:"merchant,omitempty"`
	ExternalID  string       `bson:"external_id,omitempty"`
	IsRecurring bool         `bson:"is_recurring"`
	Tags        []string     `bson:"tags,omitempty"`
	Notes       string       `bson:"notes,omitempty"`
	Location    *locationRow `bson:"location,omitempty"`
	CreatedAt   time.Time    `bson:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at"`
}

func transactionToRow(t *domain.Transaction) *transactionRow {
	row := &transactionRow{
		ID:          t.ID,
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		Date:        t.Date,
		Amount:      t.Amount.String(),
		Type:        string(t.Type),
		Category:    t.Category,
		Subcategory: t.Subcategory,
		Description: t.Description,
		Merchant:    t.Merchant,
		ExternalID:  t.ExternalID,
		IsRecurring: t.IsRecurring,
		Tags:        t.Tags,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Location != nil {
		row.Location = &locationRow{
			Latitude:  t.Location.Latitude,
			Longitude: t.Location.Longitude,
			Address:   t.Location.Address,
		}
	}
	return row
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: parsing amount %q: %w", r.ID, r.Amount, err)
	}
	tx := &domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		AccountID:   r.AccountID,
		Date:        r.Date,
		Amount:      amount,
		Type:        domain.TransactionType(r.Type),
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Description: r.Description,
		Merchant:    r.Merchant,
		ExternalID:  r.ExternalID,
		IsRecurring: r.IsRecurring,
		Tags:        r.Tags,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Location != nil {
		tx.Location = &domain.Location{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
			Address:   r.Location.Address,
		}
	}
	return tx, nil
}
