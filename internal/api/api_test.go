package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/qrdine/qrdine/internal/auth"
	"github.com/qrdine/qrdine/internal/db"
	"github.com/qrdine/qrdine/internal/model"
	"github.com/qrdine/qrdine/internal/possync"
	"github.com/qrdine/qrdine/internal/store"
	"github.com/qrdine/qrdine/internal/vault"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server   *httptest.Server
	db       *sql.DB
	tenantID int64
	token    string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	v, err := vault.New(make([]byte, vault.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	engine := &possync.Engine{DB: database, Vault: v}
	router := NewRouter(Config{
		DB:        database,
		JWTSecret: testJWTSecret,
		Vault:     v,
		Runner:    possync.NewRunner(engine),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	tenant, err := store.CreateTenant(ctx, database, "Test Cafe", "test-cafe", "EUR")
	if err != nil {
		t.Fatal(err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if _, err := store.CreateUser(ctx, database, tenant.ID, "admin", string(hash), model.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string]string{"tenant": "test-cafe", "username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return &testEnv{server: server, db: database, tenantID: tenant.ID, token: token}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	// Wrong password.
	body, _ := json.Marshal(map[string]string{"tenant": "test-cafe", "username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Right password, wrong tenant.
	body, _ = json.Marshal(map[string]string{"tenant": "other-cafe", "username": "admin", "password": "password"})
	resp, _ = http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown tenant, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	req, _ := authRequest("POST", env.server.URL+"/api/auth/logout", env.token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", env.server.URL+"/api/menu/categories", env.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMenuAPIFlow(t *testing.T) {
	env := setupTestServer(t)

	// Create category.
	req, _ := authRequest("POST", env.server.URL+"/api/menu/categories", env.token, map[string]string{
		"name": "Starters",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var category model.MenuCategory
	json.NewDecoder(resp.Body).Decode(&category)
	resp.Body.Close()

	// Create item in it.
	req, _ = authRequest("POST", env.server.URL+"/api/menu/items", env.token, map[string]any{
		"category_id": category.ID,
		"name":        "Bruschetta",
		"price":       6.50,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var item model.MenuItem
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()
	if item.Price != 6.50 || !item.Available {
		t.Errorf("unexpected created item %+v", item)
	}

	// List items.
	req, _ = authRequest("GET", env.server.URL+"/api/menu/items", env.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var items []model.MenuItem
	json.NewDecoder(resp.Body).Decode(&items)
	resp.Body.Close()
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	// Negative price rejected.
	req, _ = authRequest("POST", env.server.URL+"/api/menu/items", env.token, map[string]any{
		"category_id": category.ID,
		"name":        "Broken",
		"price":       -1,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative price, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGuestOrderFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	category, _ := store.CreateCategory(ctx, env.db, env.tenantID, "Mains", "", 1)
	item, _ := store.CreateItem(ctx, env.db, env.tenantID, category.ID, "Burger", "", 11.90)
	table, _ := store.CreateTable(ctx, env.db, env.tenantID, "Table 4")

	// Guest loads the menu without any token.
	resp, _ := http.Get(env.server.URL + "/menu/" + table.QRToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for guest menu, got %d", resp.StatusCode)
	}
	var menu struct {
		Table      string             `json:"table"`
		Categories []menuCategoryView `json:"categories"`
	}
	json.NewDecoder(resp.Body).Decode(&menu)
	resp.Body.Close()
	if menu.Table != "Table 4" || len(menu.Categories) != 1 || len(menu.Categories[0].Items) != 1 {
		t.Errorf("unexpected guest menu %+v", menu)
	}

	// Guest places an order.
	body, _ := json.Marshal(map[string]any{
		"items": []map[string]any{{"item_id": item.ID, "quantity": 2}},
		"notes": "no onions",
	})
	resp, _ = http.Post(env.server.URL+"/menu/"+table.QRToken+"/orders", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for order, got %d", resp.StatusCode)
	}
	var order model.Order
	json.NewDecoder(resp.Body).Decode(&order)
	resp.Body.Close()
	if order.Status != model.OrderStatusOpen || len(order.Items) != 1 || order.Items[0].UnitPrice != 11.90 {
		t.Errorf("unexpected order %+v", order)
	}

	// Staff see it and move it along.
	req, _ := authRequest("GET", env.server.URL+"/api/orders?status=open", env.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var orders []model.Order
	json.NewDecoder(resp.Body).Decode(&orders)
	resp.Body.Close()
	if len(orders) != 1 {
		t.Fatalf("expected 1 open order, got %d", len(orders))
	}

	req, _ = authRequest("PUT", env.server.URL+"/api/orders/1/status", env.token, map[string]string{"status": "preparing"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for status update, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown token is a 404.
	resp, _ = http.Get(env.server.URL + "/menu/bogus-token")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := http.Get(env.server.URL + "/api/menu/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	staff, _ := store.CreateUser(ctx, env.db, env.tenantID, "waiter", string(hash), model.RoleStaff)
	staffToken, _ := auth.GenerateToken(testJWTSecret, staff.ID, env.tenantID, "waiter", model.RoleStaff)

	// Staff cannot create categories (manager+ required).
	req, _ := authRequest("POST", env.server.URL+"/api/menu/categories", staffToken, map[string]string{
		"name": "Test",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for staff creating category, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Staff cannot trigger a sync.
	req, _ = authRequest("POST", env.server.URL+"/api/pos/sync", staffToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for staff triggering sync, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Staff cannot access /api/users.
	req, _ = authRequest("GET", env.server.URL+"/api/users", staffToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for staff accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTenantIsolation(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// A second tenant with its own category.
	other, _ := store.CreateTenant(ctx, env.db, "Other Cafe", "other-cafe", "EUR")
	category, _ := store.CreateCategory(ctx, env.db, other.ID, "Their Menu", "", 1)

	// The first tenant's admin cannot see or touch it.
	req, _ := authRequest("GET", env.server.URL+"/api/menu/categories", env.token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var categories []model.MenuCategory
	json.NewDecoder(resp.Body).Decode(&categories)
	resp.Body.Close()
	if len(categories) != 0 {
		t.Errorf("expected no categories from other tenant, got %d", len(categories))
	}

	req, _ = authRequest("PUT", env.server.URL+"/api/menu/categories/"+strconv.FormatInt(category.ID, 10), env.token, map[string]string{"name": "Hijacked"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for cross-tenant update, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPOSEndpoints(t *testing.T) {
	env := setupTestServer(t)

	// Status is idle before anything happens.
	req, _ := authRequest("GET", env.server.URL+"/api/pos/status", env.token, nil)
	resp, _ := http.DefaultClient.Do(req)
	var status model.SyncStatus
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if status.Status != model.SyncStatusIdle {
		t.Errorf("expected idle status, got %q", status.Status)
	}

	// No credentials yet.
	req, _ = authRequest("GET", env.server.URL+"/api/pos/credentials", env.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without credentials, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Store credentials; the response must not echo the token.
	req, _ = authRequest("PUT", env.server.URL+"/api/pos/credentials", env.token, map[string]any{
		"provider":     "square",
		"access_token": "sq0atp-secret",
		"merchant_id":  "M123",
		"enabled":      false,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 storing credentials, got %d", resp.StatusCode)
	}
	var view credentialsView
	json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()
	if !view.HasToken || view.Provider != "square" {
		t.Errorf("unexpected credentials view %+v", view)
	}

	// The stored token is encrypted at rest.
	creds, _ := store.GetPOSCredentials(context.Background(), env.db, env.tenantID)
	if creds.AccessToken == "sq0atp-secret" {
		t.Error("access token stored in plaintext")
	}

	// Sync with the integration disabled fails cleanly.
	req, _ = authRequest("POST", env.server.URL+"/api/pos/sync", env.token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for disabled integration, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

