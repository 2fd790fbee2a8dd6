// Package xero integrates with the Xero accounting API: the OAuth 2.0
// authorization-code flow, tenant discovery and bank transaction retrieval.
package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/smbcash/cashflow-dashboard/internal/model"
)

const (
	authURL        = "https://login.xero.com/identity/connect/authorize"
	tokenURL       = "https://identity.xero.com/connect/token"
	connectionsURL = "https://api.xero.com/connections"
	bankTxURL      = "https://api.xero.com/api.xro/2.0/BankTransactions"

	// Xero's DateString fields carry no zone; the API documents them as UTC.
	xeroDateLayout = "2006-01-02T15:04:05"
)

// Config holds the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured reports whether OAuth credentials are present. Without them
// the dashboard falls back to demo data.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// BankTransaction is the subset of a Xero bank transaction the dashboard
// consumes.
type BankTransaction struct {
	ID          string
	Date        time.Time
	Type        string // RECEIVE or SPEND
	Total       decimal.Decimal
	Reference   string
	ContactName string
	AccountName string
}

// SignedAmount converts the transaction to the dashboard's convention:
// positive for money in, negative for money out.
func (bt BankTransaction) SignedAmount() decimal.Decimal {
	if bt.Type == "SPEND" {
		return bt.Total.Neg()
	}
	return bt.Total
}

// Client talks to the Xero API.
type Client struct {
	conf *oauth2.Config
	http *http.Client
}

// NewClient builds a client from application credentials.
func NewClient(cfg Config) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes: []string{
				"offline_access",
				"accounting.transactions.read",
				"accounting.contacts.read",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthCodeURL returns the URL to send the user to for consent.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// FirstTenantID returns the tenant ID of the first organisation the token
// grants access to. The dashboard links a single organisation.
func (c *Client) FirstTenantID(ctx context.Context, token *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, connectionsURL, nil)
	if err != nil {
		return "", fmt.Errorf("building connections request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching connections: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("connections request failed: %s: %s", resp.Status, body)
	}

	var conns []struct {
		TenantID   string `json:"tenantId"`
		TenantType string `json:"tenantType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&conns); err != nil {
		return "", fmt.Errorf("decoding connections: %w", err)
	}
	for _, conn := range conns {
		if conn.TenantType == "ORGANISATION" {
			return conn.TenantID, nil
		}
	}
	return "", fmt.Errorf("token grants access to no organisation")
}

// FetchBankTransactions retrieves bank transactions for the connection's
// tenant. It refreshes the access token transparently; when a refresh
// happened the new token is returned so the caller can persist it.
func (c *Client) FetchBankTransactions(ctx context.Context, conn *model.XeroConnection) ([]BankTransaction, *oauth2.Token, error) {
	current := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
		Expiry:       conn.Expiry,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	source := c.conf.TokenSource(ctx, current)

	token, err := source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("refreshing token: %w", err)
	}
	var refreshed *oauth2.Token
	if token.AccessToken != current.AccessToken {
		refreshed = token
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bankTxURL, nil)
	if err != nil {
		return nil, refreshed, fmt.Errorf("building bank transactions request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Xero-tenant-id", conn.TenantID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, refreshed, fmt.Errorf("fetching bank transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, refreshed, fmt.Errorf("bank transactions request failed: %s: %s", resp.Status, body)
	}

	var payload struct {
		BankTransactions []struct {
			BankTransactionID string  `json:"BankTransactionID"`
			Type              string  `json:"Type"`
			Status            string  `json:"Status"`
			Total             float64 `json:"Total"`
			DateString        string  `json:"DateString"`
			Reference         string  `json:"Reference"`
			Contact           struct {
				Name string `json:"Name"`
			} `json:"Contact"`
			BankAccount struct {
				Name string `json:"Name"`
			} `json:"BankAccount"`
		} `json:"BankTransactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, refreshed, fmt.Errorf("decoding bank transactions: %w", err)
	}

	result := make([]BankTransaction, 0, len(payload.BankTransactions))
	for _, raw := range payload.BankTransactions {
		if raw.Status == "DELETED" {
			continue
		}
		date, err := time.Parse(xeroDateLayout, raw.DateString)
		if err != nil {
			return nil, refreshed, fmt.Errorf("parsing transaction date %q: %w", raw.DateString, err)
		}
		result = append(result, BankTransaction{
			ID:          raw.BankTransactionID,
			Date:        date.UTC(),
			Type:        raw.Type,
			Total:       decimal.NewFromFloat(raw.Total),
			Reference:   raw.Reference,
			ContactName: raw.Contact.Name,
			AccountName: raw.BankAccount.Name,
		})
	}
	return result, refreshed, nil
}
