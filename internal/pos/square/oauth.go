package square

import (
	"context"
	"net/http"
	"time"
)

// OAuthConfig is the application's credentials for the authorization
// code flow.
type OAuthConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthTokens is the result of an authorization code exchange.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	MerchantID   string
}

type obtainTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	GrantType    string `json:"grant_type"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type obtainTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	MerchantID   string `json:"merchant_id"`
}

// ExchangeCode trades an authorization code for access tokens. The
// caller stores the result through the credential vault.
func ExchangeCode(ctx context.Context, cfg OAuthConfig, code string) (*OAuthTokens, error) {
	client := NewClient(Options{BaseURL: cfg.BaseURL})

	var resp obtainTokenResponse
	err := client.Do(ctx, http.MethodPost, "/oauth2/token", obtainTokenRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Code:         code,
		GrantType:    "authorization_code",
		RedirectURI:  cfg.RedirectURL,
	}, &resp)
	if err != nil {
		return nil, err
	}

	tokens := &OAuthTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		MerchantID:   resp.MerchantID,
	}
	if resp.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			tokens.ExpiresAt = t
		}
	}
	return tokens, nil
}
