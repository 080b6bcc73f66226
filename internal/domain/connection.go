package domain

import (
	"time"
)

// ConnectionStatus is the lifecycle state of a bank connection.
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionExpired ConnectionStatus = "expired"
	ConnectionRevoked ConnectionStatus = "revoked"
	ConnectionError   ConnectionStatus = "error"
)

// Connection is one authorized link between a user and a financial
// institution via the aggregator. At most one connection exists per
// (user, provider, institution) tuple; re-authenticating the same
// institution updates the existing record in place.
type Connection struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Provider string `json:"provider"`

	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`

	InstitutionID   string `json:"institutionId"`
	InstitutionName string `json:"institutionName"`

	Status     ConnectionStatus `json:"status"`
	ConsentID  string           `json:"consentId,omitempty"`
	LastSynced time.Time        `json:"lastSynced"`

	// Metadata carries the provider's opaque institution payload as returned
	// by the info endpoint. Never interpreted outside the provider package.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch updates the UpdatedAt timestamp. Write paths call this explicitly
// before persisting so mutation side effects stay visible at the call site.
func (c *Connection) Touch(now time.Time) {
	c.UpdatedAt = now
}
