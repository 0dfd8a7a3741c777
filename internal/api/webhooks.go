package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/possync"
	"github.com/qrdine/qrdine/internal/store"
)

// squareWebhookSchema describes the envelope Square posts for catalog
// notifications. Anything that does not match is dropped before any
// database work happens.
const squareWebhookSchema = `{
	"type": "object",
	"required": ["type", "merchant_id"],
	"properties": {
		"type": {"type": "string", "minLength": 1},
		"merchant_id": {"type": "string", "minLength": 1},
		"event_id": {"type": "string"},
		"created_at": {"type": "string"}
	}
}`

const toastWebhookSchema = `{
	"type": "object",
	"required": ["eventType", "restaurantGuid"],
	"properties": {
		"eventType": {"type": "string", "minLength": 1},
		"restaurantGuid": {"type": "string", "minLength": 1},
		"guid": {"type": "string"},
		"timestamp": {"type": "string"}
	}
}`

// maxWebhookBody bounds webhook payloads; catalog notifications are
// envelopes, never the catalog itself.
const maxWebhookBody = 64 << 10

// WebhooksHandler receives provider push notifications and turns
// catalog changes into sync runs.
type WebhooksHandler struct {
	DB     *sql.DB
	Runner *possync.Runner

	// SquareSignatureKey signs notifications together with the exact
	// URL Square was told to deliver to.
	SquareSignatureKey string
	SquareNotifyURL    string
	// ToastSecret signs the raw body only.
	ToastSecret string

	squareSchema *jsonschema.Schema
	toastSchema  *jsonschema.Schema
}

// NewWebhooksHandler compiles the payload schemas up front.
func NewWebhooksHandler(db *sql.DB, runner *possync.Runner, squareKey, squareURL, toastSecret string) *WebhooksHandler {
	return &WebhooksHandler{
		DB:                 db,
		Runner:             runner,
		SquareSignatureKey: squareKey,
		SquareNotifyURL:    squareURL,
		ToastSecret:        toastSecret,
		squareSchema:       mustCompileSchema("square-webhook.json", squareWebhookSchema),
		toastSchema:        mustCompileSchema("toast-webhook.json", toastWebhookSchema),
	}
}

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		panic(err)
	}
	return compiled
}

type squareWebhookEvent struct {
	Type       string `json:"type"`
	MerchantID string `json:"merchant_id"`
	EventID    string `json:"event_id"`
}

type toastWebhookEvent struct {
	EventType      string `json:"eventType"`
	RestaurantGUID string `json:"restaurantGuid"`
}

// Square handles POST /webhooks/square.
func (h *WebhooksHandler) Square(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifySquareSignature(r.Header.Get("X-Square-HmacSha256-Signature"), body) {
		jsonError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if err := h.validate(h.squareSchema, body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var event squareWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if event.Type != "catalog.version.updated" {
		// Not a catalog change; acknowledge so Square stops retrying.
		jsonResponse(w, http.StatusOK, map[string]string{"message": "ignored"})
		return
	}

	h.triggerForMerchant(w, r.Context(), model.ProviderSquare, event.MerchantID)
}

// Toast handles POST /webhooks/toast.
func (h *WebhooksHandler) Toast(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifyToastSignature(r.Header.Get("Toast-Signature"), body) {
		jsonError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	if err := h.validate(h.toastSchema, body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var event toastWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if event.EventType != "menus_updated" {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "ignored"})
		return
	}

	h.triggerForMerchant(w, r.Context(), model.ProviderToast, event.RestaurantGUID)
}

// triggerForMerchant resolves the tenant behind a provider account and
// kicks off a sync in the background. The webhook is acknowledged
// immediately; providers only care that delivery succeeded.
func (h *WebhooksHandler) triggerForMerchant(w http.ResponseWriter, ctx context.Context, provider, ref string) {
	tenantID, err := store.FindTenantByMerchant(ctx, h.DB, provider, ref)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tenantID == 0 {
		// Unknown merchant: acknowledged but nothing to do. Returning an
		// error would only make the provider retry forever.
		jsonResponse(w, http.StatusOK, map[string]string{"message": "no matching tenant"})
		return
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.Runner.Run(runCtx, tenantID); err != nil {
			if errors.Is(err, possync.ErrSyncInProgress) {
				// A concurrent run will pick up the same catalog state.
				return
			}
			slog.Error("webhook-triggered sync failed", "provider", provider, "tenant", tenantID, "error", err)
		}
	}()

	jsonResponse(w, http.StatusAccepted, map[string]string{"message": "sync scheduled"})
}

func (h *WebhooksHandler) validate(schema *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

// verifySquareSignature checks the base64 HMAC-SHA256 Square computes
// over the notification URL concatenated with the raw body.
func (h *WebhooksHandler) verifySquareSignature(signature string, body []byte) bool {
	if h.SquareSignatureKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.SquareSignatureKey))
	mac.Write([]byte(h.SquareNotifyURL))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// verifyToastSignature checks the hex HMAC-SHA256 over the raw body.
func (h *WebhooksHandler) verifyToastSignature(signature string, body []byte) bool {
	if h.ToastSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.ToastSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}
