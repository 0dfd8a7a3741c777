package toast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/qrdine/qrdine/internal/pos"
)

func TestFetchFullCatalogPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Toast-Restaurant-External-ID"); got != "rest-1" {
			t.Errorf("unexpected restaurant header %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/config/v2/menuGroups":
			if page == 1 {
				// Full page forces a second request.
				groups := make([]menuGroup, pageSize)
				for i := range groups {
					groups[i] = menuGroup{GUID: fmt.Sprintf("g-%d", i), Name: fmt.Sprintf("Group %d", i)}
				}
				json.NewEncoder(w).Encode(groups)
				return
			}
			json.NewEncoder(w).Encode([]menuGroup{{GUID: "g-last", Name: "Last"}})
		case "/config/v2/menuItems":
			json.NewEncoder(w).Encode([]menuItem{{
				GUID:          "i-1",
				Name:          "Pad Thai",
				MenuGroupGUID: "g-0",
				Pricing:       []itemPrice{{AmountCents: 1299}},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, AccessToken: "t", RestaurantID: "rest-1"})
	catalog, err := client.FetchFullCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchFullCatalog: %v", err)
	}

	if len(catalog.Categories) != pageSize+1 {
		t.Errorf("expected %d categories across pages, got %d", pageSize+1, len(catalog.Categories))
	}
	if len(catalog.Items) != 1 || catalog.Items[0].PriceMinorUnits != 1299 {
		t.Errorf("unexpected items %+v", catalog.Items)
	}
}

func TestFetchFullCatalogProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "restaurant not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, AccessToken: "t", RestaurantID: "missing"})
	_, err := client.FetchFullCatalog(context.Background())

	var provErr *pos.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusNotFound || provErr.Body != "restaurant not found" {
		t.Errorf("unexpected provider error %+v", provErr)
	}
}

func TestFetchFullCatalogExpiredToken(t *testing.T) {
	client := NewClient(Options{
		BaseURL:     "http://127.0.0.1:0",
		AccessToken: "t",
		ExpiresAt:   time.Now().Add(-time.Hour),
	})
	_, err := client.FetchFullCatalog(context.Background())
	if !errors.Is(err, pos.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}
