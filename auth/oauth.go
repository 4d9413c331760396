package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuthRefresher refreshes tokens at an OAuth 2.0 token endpoint. The client
// credentials are sent with basic authentication.
type OAuthRefresher struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

func (r *OAuthRefresher) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Refresh implements Refresher.
func (r *OAuthRefresher) Refresh(refreshToken string) (*Token, error) {
	ctx := context.Background()
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}
	ot, err := r.config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("Token request failed on %s: %w", r.TokenURL, err)
	}
	if ot.AccessToken == "" {
		return nil, fmt.Errorf("Token response without access token")
	}
	return &Token{
		AccessToken:  ot.AccessToken,
		RefreshToken: ot.RefreshToken,
		TokenType:    ot.TokenType,
		Expiry:       ot.Expiry,
	}, nil
}
