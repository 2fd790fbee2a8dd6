package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/model"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

// stateTTL bounds how long an issued OAuth state stays valid.
const stateTTL = 10 * time.Minute

// OAuthClient is the part of the Xero client the connect flow needs.
// Tests substitute a fake.
type OAuthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FirstTenantID(ctx context.Context, token *oauth2.Token) (string, error)
}

// XeroHandler handles the Xero connection endpoints.
type XeroHandler struct {
	store      store.Store
	client     OAuthClient
	configured bool
	log        zerolog.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewXeroHandler creates a new Xero handler. client may be nil when no
// OAuth credentials are configured; connect and callback then return 503
// and the dashboard stays in demo mode.
func NewXeroHandler(st store.Store, client OAuthClient, configured bool, log zerolog.Logger) *XeroHandler {
	return &XeroHandler{
		store:      st,
		client:     client,
		configured: configured,
		log:        log,
		states:     make(map[string]time.Time),
	}
}

// Connect handles GET /api/xero/connect
// It returns the consent URL the frontend redirects the user to.
func (h *XeroHandler) Connect(w http.ResponseWriter, _ *http.Request) {
	if !h.configured {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Xero credentials not configured, running in demo mode")
		return
	}

	state := uuid.NewString()
	h.mu.Lock()
	h.states[state] = time.Now().Add(stateTTL)
	h.mu.Unlock()

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"authorization_url": h.client.AuthCodeURL(state),
		"state":             state,
	})
}

// Callback handles GET /api/xero/callback
// Xero redirects here after consent; the code is exchanged for tokens and
// the connection persisted.
func (h *XeroHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.configured {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Xero credentials not configured, running in demo mode")
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		middleware.WriteError(w, http.StatusBadRequest, "code and state are required")
		return
	}
	if !h.consumeState(state) {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown or expired state")
		return
	}

	ctx := r.Context()
	token, err := h.client.Exchange(ctx, code)
	if err != nil {
		h.log.Error().Err(err).Msg("Token exchange failed")
		middleware.WriteError(w, http.StatusBadGateway, "Token exchange failed")
		return
	}

	tenantID, err := h.client.FirstTenantID(ctx, token)
	if err != nil {
		h.log.Error().Err(err).Msg("Tenant lookup failed")
		middleware.WriteError(w, http.StatusBadGateway, "Tenant lookup failed")
		return
	}

	conn := &model.XeroConnection{
		TenantID:     tenantID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		ConnectedAt:  time.Now().UTC(),
	}
	if err := h.store.SaveConnection(ctx, conn); err != nil {
		h.log.Error().Err(err).Msg("Failed to persist connection")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to persist connection")
		return
	}

	h.log.Info().Str("tenant_id", tenantID).Msg("Xero organisation connected")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "connected",
		"tenant_id": tenantID,
	})
}

// Status handles GET /api/xero/status
func (h *XeroHandler) Status(w http.ResponseWriter, r *http.Request) {
	conn, err := h.store.GetConnection(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"connected": false,
			"demo_mode": true,
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load connection")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load connection status")
		return
	}

	resp := map[string]interface{}{
		"connected":    true,
		"demo_mode":    false,
		"tenant_id":    conn.TenantID,
		"connected_at": conn.ConnectedAt,
		"token_valid":  conn.TokenValid(),
	}
	if conn.LastSyncAt != nil {
		resp["last_sync_at"] = conn.LastSyncAt
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Disconnect handles DELETE /api/xero/disconnect
func (h *XeroHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteConnection(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to delete connection")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to disconnect")
		return
	}
	h.log.Info().Msg("Xero organisation disconnected")
	w.WriteHeader(http.StatusNoContent)
}

// consumeState checks a state value and removes it; states are single use.
func (h *XeroHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	expiry, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Now().Before(expiry)
}
