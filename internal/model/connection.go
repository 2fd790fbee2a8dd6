package model

import "time"

// XeroConnection holds the OAuth2 state for the linked Xero organisation.
// The dashboard is single-tenant: at most one connection exists at a time.
type XeroConnection struct {
	TenantID     string    `json:"tenant_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"-"`
	Expiry       time.Time `json:"token_expires_at"`

	ConnectedAt time.Time  `json:"connected_at"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

// TokenValid reports whether the access token is present and unexpired.
func (c *XeroConnection) TokenValid() bool {
	return c.AccessToken != "" && time.Now().Before(c.Expiry)
}
