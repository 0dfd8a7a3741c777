// Package square implements the Square-shaped POS provider: a flat,
// cursor-paginated catalog of typed objects.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qrdine/qrdine/internal/pos"
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	AccessToken string
	// ExpiresAt is the stored token expiry. Zero means the provider did
	// not issue one and no expiry check is performed.
	ExpiresAt  time.Time
	HTTPClient *http.Client
}

// Client talks to a Square-shaped catalog API.
type Client struct {
	baseURL     string
	accessToken string
	expiresAt   time.Time
	httpClient  *http.Client
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://connect.squareup.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: opts.AccessToken,
		expiresAt:   opts.ExpiresAt,
		httpClient:  httpClient,
	}
}

// FetchFullCatalog pages through the catalog list and returns the
// normalized result. A failure on any page aborts the whole fetch so
// the reconciler never sees a partial catalog.
func (c *Client) FetchFullCatalog(ctx context.Context) (*pos.Catalog, error) {
	if !c.expiresAt.IsZero() && time.Now().After(c.expiresAt) {
		return nil, pos.ErrCredentialExpired
	}

	var objects []catalogObject
	cursor := ""
	for {
		page, err := c.listCatalogPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	return normalize(objects), nil
}

func (c *Client) listCatalogPage(ctx context.Context, cursor string) (*listCatalogResponse, error) {
	q := url.Values{}
	q.Set("types", "CATEGORY,ITEM,IMAGE,MODIFIER_LIST")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page listCatalogResponse
	if err := c.Do(ctx, http.MethodGet, "/v2/catalog/list?"+q.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return &page, nil
}

// Do performs a raw provider request. Non-2xx responses become a
// *pos.ProviderError carrying the status code and body verbatim.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
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
