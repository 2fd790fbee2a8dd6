package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies how a transaction entered the system.
type Source string

const (
	// SourceManual marks a transaction entered by hand through the API.
	SourceManual Source = "manual"
	// SourceExternalSync marks a transaction imported from the accounting
	// provider. Synced transactions are immutable and cannot be deleted.
	SourceExternalSync Source = "external-sync"
)

// Transaction is one dated, signed cash movement. Positive amounts are
// income, negative amounts are expenses.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Source      Source          `json:"source"`

	// ExternalID is the provider-side identifier, set iff Source is
	// external-sync. Imports are idempotent on this value.
	ExternalID string `json:"external_id,omitempty"`

	AccountName string `json:"account_name,omitempty"`
	ContactName string `json:"contact_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsIncome reports whether the transaction adds cash.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}
