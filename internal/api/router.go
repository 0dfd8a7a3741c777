package api

import (
	"database/sql"
	"net/http"

	"github.com/rs/cors"

	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/pos/square"
	"github.com/qrdine/qrdine/internal/possync"
	"github.com/qrdine/qrdine/internal/vault"
)

// Config carries the router's dependencies and secrets.
type Config struct {
	DB        *sql.DB
	JWTSecret string
	Vault     *vault.Vault
	Runner    *possync.Runner

	SquareOAuth        square.OAuthConfig
	SquareSignatureKey string
	SquareNotifyURL    string
	ToastSecret        string

	// AllowedOrigins for browser clients; empty means same-origin only.
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret}
	usersHandler := &UsersHandler{DB: cfg.DB}
	menuHandler := &MenuHandler{DB: cfg.DB}
	tablesHandler := &TablesHandler{DB: cfg.DB}
	ordersHandler := &OrdersHandler{DB: cfg.DB}
	publicHandler := &PublicHandler{DB: cfg.DB}
	posHandler := &POSHandler{
		DB:          cfg.DB,
		Vault:       cfg.Vault,
		Runner:      cfg.Runner,
		OAuth:       cfg.SquareOAuth,
		StateSecret: cfg.JWTSecret,
	}
	webhooksHandler := NewWebhooksHandler(cfg.DB, cfg.Runner, cfg.SquareSignatureKey, cfg.SquareNotifyURL, cfg.ToastSecret)

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login, guest menu, order placement, provider callbacks.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /menu/{token}", publicHandler.GetMenu)
	mux.HandleFunc("GET /menu/{token}/items/{id}/image", publicHandler.GetItemImage)
	mux.HandleFunc("POST /menu/{token}/orders", publicHandler.PlaceOrder)
	mux.HandleFunc("GET /oauth/square/callback", posHandler.OAuthCallback)
	mux.HandleFunc("POST /webhooks/square", webhooksHandler.Square)
	mux.HandleFunc("POST /webhooks/toast", webhooksHandler.Toast)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Staff accounts (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Menu: read (all roles), write (manager+).
	mux.Handle("GET /api/menu/categories", authMW(http.HandlerFunc(menuHandler.ListCategories)))
	mux.Handle("POST /api/menu/categories", authMW(requireManager(http.HandlerFunc(menuHandler.CreateCategory))))
	mux.Handle("PUT /api/menu/categories/{id}", authMW(requireManager(http.HandlerFunc(menuHandler.UpdateCategory))))
	mux.Handle("GET /api/menu/items", authMW(http.HandlerFunc(menuHandler.ListItems)))
	mux.Handle("POST /api/menu/items", authMW(requireManager(http.HandlerFunc(menuHandler.CreateItem))))
	mux.Handle("GET /api/menu/items/{id}", authMW(http.HandlerFunc(menuHandler.GetItem)))
	mux.Handle("PUT /api/menu/items/{id}", authMW(requireManager(http.HandlerFunc(menuHandler.UpdateItem))))
	mux.Handle("PUT /api/menu/items/{id}/image", authMW(requireManager(http.HandlerFunc(menuHandler.UploadImage))))
	mux.Handle("GET /api/menu/items/{id}/image", authMW(http.HandlerFunc(menuHandler.GetImage)))

	// Tables (manager+ for writes).
	mux.Handle("GET /api/tables", authMW(http.HandlerFunc(tablesHandler.List)))
	mux.Handle("POST /api/tables", authMW(requireManager(http.HandlerFunc(tablesHandler.Create))))
	mux.Handle("DELETE /api/tables/{id}", authMW(requireManager(http.HandlerFunc(tablesHandler.Delete))))

	// Orders (all roles).
	mux.Handle("GET /api/orders", authMW(http.HandlerFunc(ordersHandler.List)))
	mux.Handle("GET /api/orders/{id}", authMW(http.HandlerFunc(ordersHandler.Get)))
	mux.Handle("PUT /api/orders/{id}/status", authMW(http.HandlerFunc(ordersHandler.UpdateStatus)))

	// POS integration (manager+).
	mux.Handle("GET /api/pos/credentials", authMW(requireManager(http.HandlerFunc(posHandler.GetCredentials))))
	mux.Handle("PUT /api/pos/credentials", authMW(requireManager(http.HandlerFunc(posHandler.PutCredentials))))
	mux.Handle("PUT /api/pos/enabled", authMW(requireManager(http.HandlerFunc(posHandler.SetEnabled))))
	mux.Handle("POST /api/pos/sync", authMW(requireManager(http.HandlerFunc(posHandler.TriggerSync))))
	mux.Handle("GET /api/pos/status", authMW(http.HandlerFunc(posHandler.GetStatus)))
	mux.Handle("GET /api/pos/oauth/url", authMW(requireManager(http.HandlerFunc(posHandler.AuthorizeURL))))

	if len(cfg.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		})
		return c.Handler(mux)
	}
	return mux
}
