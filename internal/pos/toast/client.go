// Package toast implements the Toast-shaped POS provider: page-numbered
// configuration endpoints scoped to a restaurant location.
package toast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qrdine/qrdine/internal/pos"
)

// pageSize is the number of entities requested per page.
const pageSize = 100

// Options configures a Client.
type Options struct {
	BaseURL     string
	AccessToken string
	// RestaurantID scopes every request to one location via the
	// Toast-Restaurant-External-ID header.
	RestaurantID string
	// ExpiresAt is the stored token expiry. Zero means none was issued.
	ExpiresAt  time.Time
	HTTPClient *http.Client
}

// Client talks to a Toast-shaped menu configuration API.
type Client struct {
	baseURL      string
	accessToken  string
	restaurantID string
	expiresAt    time.Time
	httpClient   *http.Client
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://ws-api.toasttab.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      baseURL,
		accessToken:  opts.AccessToken,
		restaurantID: opts.RestaurantID,
		expiresAt:    opts.ExpiresAt,
		httpClient:   httpClient,
	}
}

// FetchFullCatalog fetches all menu groups and menu items and returns
// the normalized result. Any page failure aborts the whole fetch.
func (c *Client) FetchFullCatalog(ctx context.Context) (*pos.Catalog, error) {
	if !c.expiresAt.IsZero() && time.Now().After(c.expiresAt) {
		return nil, pos.ErrCredentialExpired
	}

	var groups []menuGroup
	for page := 1; ; page++ {
		var batch []menuGroup
		if err := c.get(ctx, "/config/v2/menuGroups", page, &batch); err != nil {
			return nil, fmt.Errorf("listing menu groups: %w", err)
		}
		groups = append(groups, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	var items []menuItem
	for page := 1; ; page++ {
		var batch []menuItem
		if err := c.get(ctx, "/config/v2/menuItems", page, &batch); err != nil {
			return nil, fmt.Errorf("listing menu items: %w", err)
		}
		items = append(items, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	return normalize(groups, items), nil
}

func (c *Client) get(ctx context.Context, path string, page int, out any) error {
	query := "?page=" + strconv.Itoa(page) + "&pageSize=" + strconv.Itoa(pageSize)
	return c.Do(ctx, http.MethodGet, path+query, nil, out)
}

// Do performs a raw request against the provider, decoding a JSON
// response into out when out is non-nil. Provider-specific calls that
// are not part of the catalog fetch go through here.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Toast-Restaurant-External-ID", c.restaurantID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &pos.ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding provider response: %w", err)
		}
	}
	return nil
}
