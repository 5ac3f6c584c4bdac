package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/promoforge/driveguard/internal/credentials"
)

// Google OAuth endpoints for the Drive integration.
const (
	DefaultAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

	// DriveFileScope grants access to files created by this app only.
	DriveFileScope = "https://www.googleapis.com/auth/drive.file"
)

// AuthConfig builds the oauth2 config for the one-time authorization-code
// flow that produces the initial credential.
func AuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{DriveFileScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  DefaultAuthURL,
			TokenURL: DefaultTokenURL,
		},
	}
}

// AuthCodeURL returns the consent page URL. Offline access is requested so
// the provider issues a refresh token, and consent is forced because Google
// only returns a refresh token on the first approval otherwise.
func AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for the initial credential.
func ExchangeCode(ctx context.Context, cfg *oauth2.Config, code string) (*credentials.Credential, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}

	cred := &credentials.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		cred.ExpiryDate = token.Expiry.UnixMilli()
	}
	return cred, nil
}
