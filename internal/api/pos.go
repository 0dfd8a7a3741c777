package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/pos"
	"github.com/qrdine/qrdine/internal/pos/square"
	"github.com/qrdine/qrdine/internal/possync"
	"github.com/qrdine/qrdine/internal/store"
	"github.com/qrdine/qrdine/internal/vault"
)

// POSHandler handles POS integration endpoints: credential management,
// sync triggering, status polling, and the Square OAuth flow.
type POSHandler struct {
	DB          *sql.DB
	Vault       *vault.Vault
	Runner      *possync.Runner
	OAuth       square.OAuthConfig
	StateSecret string
}

type credentialsRequest struct {
	Provider     string `json:"provider"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	MerchantID   string `json:"merchant_id"`
	LocationID   string `json:"location_id"`
	ExpiresAt    string `json:"expires_at"`
	Enabled      bool   `json:"enabled"`
}

// credentialsView never exposes token material, only its presence.
type credentialsView struct {
	Provider   string     `json:"provider"`
	MerchantID string     `json:"merchant_id,omitempty"`
	LocationID string     `json:"location_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Enabled    bool       `json:"enabled"`
	HasToken   bool       `json:"has_token"`
}

// PutCredentials handles PUT /api/pos/credentials. Tokens are encrypted
// before they touch the database.
func (h *POSHandler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Provider != model.ProviderSquare && req.Provider != model.ProviderToast {
		jsonError(w, http.StatusBadRequest, "provider must be square or toast")
		return
	}
	if req.AccessToken == "" {
		jsonError(w, http.StatusBadRequest, "access_token required")
		return
	}
	if req.Provider == model.ProviderToast && req.LocationID == "" {
		jsonError(w, http.StatusBadRequest, "location_id required for toast")
		return
	}

	encrypted, err := h.Vault.Encrypt(req.AccessToken)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}
	var encryptedRefresh string
	if req.RefreshToken != "" {
		encryptedRefresh, err = h.Vault.Encrypt(req.RefreshToken)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}
	}

	creds := &model.POSCredentials{
		TenantID:     GetClaims(r.Context()).TenantID,
		Provider:     req.Provider,
		AccessToken:  encrypted,
		RefreshToken: encryptedRefresh,
		MerchantID:   req.MerchantID,
		LocationID:   req.LocationID,
		Enabled:      req.Enabled,
	}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "expires_at must be RFC 3339")
			return
		}
		creds.ExpiresAt = &t
	}

	if err := store.UpsertPOSCredentials(r.Context(), h.DB, creds); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	slog.Info("pos credentials updated", "tenant", creds.TenantID, "provider", creds.Provider)
	jsonResponse(w, http.StatusOK, credsView(creds))
}

// GetCredentials handles GET /api/pos/credentials.
func (h *POSHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	creds, err := store.GetPOSCredentials(r.Context(), h.DB, claims.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get credentials")
		return
	}
	if creds == nil {
		jsonError(w, http.StatusNotFound, "no pos integration configured")
		return
	}
	jsonResponse(w, http.StatusOK, credsView(creds))
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabled handles PUT /api/pos/enabled.
func (h *POSHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	creds, err := store.GetPOSCredentials(r.Context(), h.DB, claims.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get credentials")
		return
	}
	if creds == nil {
		jsonError(w, http.StatusNotFound, "no pos integration configured")
		return
	}

	if err := store.SetPOSIntegrationEnabled(r.Context(), h.DB, claims.TenantID, req.Enabled); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update integration")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// TriggerSync handles POST /api/pos/sync. The run happens inline; the
// response carries the run's result or a mapped failure.
func (h *POSHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	result, err := h.Runner.Run(r.Context(), claims.TenantID)
	if err != nil {
		var provErr *pos.ProviderError
		switch {
		case errors.Is(err, possync.ErrSyncInProgress):
			jsonError(w, http.StatusConflict, "a sync is already running for this tenant")
		case errors.Is(err, pos.ErrIntegrationNotEnabled):
			jsonError(w, http.StatusBadRequest, "pos integration is not enabled")
		case errors.Is(err, pos.ErrCredentialExpired):
			jsonError(w, http.StatusBadRequest, "pos credentials have expired, reconnect the integration")
		case errors.As(err, &provErr):
			jsonResponse(w, http.StatusBadGateway, result)
		default:
			jsonResponse(w, http.StatusInternalServerError, result)
		}
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

// GetStatus handles GET /api/pos/status.
func (h *POSHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	status, err := store.GetSyncStatus(r.Context(), h.DB, claims.TenantID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get sync status")
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

// AuthorizeURL handles GET /api/pos/oauth/url: it builds the Square
// authorization URL with a signed state so the callback can recover and
// trust the tenant.
func (h *POSHandler) AuthorizeURL(w http.ResponseWriter, r *http.Request) {
	if h.OAuth.ClientID == "" {
		jsonError(w, http.StatusNotImplemented, "square oauth is not configured")
		return
	}

	claims := GetClaims(r.Context())
	state := h.signState(claims.TenantID, time.Now())

	base := h.OAuth.BaseURL
	if base == "" {
		base = "https://connect.squareup.com"
	}
	q := url.Values{}
	q.Set("client_id", h.OAuth.ClientID)
	q.Set("scope", "ITEMS_READ MERCHANT_PROFILE_READ")
	q.Set("session", "false")
	q.Set("state", state)

	jsonResponse(w, http.StatusOK, map[string]string{
		"url": base + "/oauth2/authorize?" + q.Encode(),
	})
}

// OAuthCallback handles GET /oauth/square/callback. Square redirects the
// browser here with a code and our state; the exchange result is stored
// encrypted and the integration enabled.
func (h *POSHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		jsonError(w, http.StatusBadRequest, "code and state required")
		return
	}

	tenantID, err := h.verifyState(state, time.Now())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	tokens, err := square.ExchangeCode(r.Context(), h.OAuth, code)
	if err != nil {
		slog.Error("square oauth exchange failed", "tenant", tenantID, "error", err)
		jsonError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	encrypted, err := h.Vault.Encrypt(tokens.AccessToken)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}
	var encryptedRefresh string
	if tokens.RefreshToken != "" {
		encryptedRefresh, err = h.Vault.Encrypt(tokens.RefreshToken)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}
	}

	creds := &model.POSCredentials{
		TenantID:     tenantID,
		Provider:     model.ProviderSquare,
		AccessToken:  encrypted,
		RefreshToken: encryptedRefresh,
		MerchantID:   tokens.MerchantID,
		Enabled:      true,
	}
	if !tokens.ExpiresAt.IsZero() {
		creds.ExpiresAt = &tokens.ExpiresAt
	}

	if err := store.UpsertPOSCredentials(r.Context(), h.DB, creds); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store credentials")
		return
	}

	slog.Info("square connected", "tenant", tenantID, "merchant", tokens.MerchantID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "square connected"})
}

// oauthStateTTL bounds how long an authorization redirect stays valid.
const oauthStateTTL = 10 * time.Minute

// signState produces "tenantID.unixTime.signature" with an HMAC over
// the first two fields.
func (h *POSHandler) signState(tenantID int64, now time.Time) string {
	payload := fmt.Sprintf("%d.%d", tenantID, now.Unix())
	mac := hmac.New(sha256.New, []byte(h.StateSecret))
	mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

func (h *POSHandler) verifyState(state string, now time.Time) (int64, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return 0, errors.New("malformed state")
	}

	payload := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, []byte(h.StateSecret))
	mac.Write([]byte(payload))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return 0, errors.New("bad signature")
	}

	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, errors.New("malformed timestamp")
	}
	if now.Sub(time.Unix(issued, 0)) > oauthStateTTL {
		return 0, errors.New("state expired")
	}

	return strconv.ParseInt(parts[0], 10, 64)
}

func credsView(c *model.POSCredentials) credentialsView {
	return credentialsView{
		Provider:   c.Provider,
		MerchantID: c.MerchantID,
		LocationID: c.LocationID,
		ExpiresAt:  c.ExpiresAt,
		Enabled:    c.Enabled,
		HasToken:   c.AccessToken != "",
	}
}
