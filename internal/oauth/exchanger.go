package oauth

import (
	"context"
	"errors"
)

// ErrRefreshRejected indicates the provider refused the refresh token itself
// (revoked, expired, or otherwise invalid). Retrying is pointless; the user
// has to go back through the authorization flow.
var ErrRefreshRejected = errors.New("refresh token rejected by provider")

// TokenResponse is the provider's answer to a refresh-token exchange.
// RefreshToken is empty when the provider does not rotate refresh tokens.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Exchanger performs the network round-trip that trades a refresh token for
// a new access token.
type Exchanger interface {
	// Refresh exchanges the refresh token for a fresh access token.
	// Errors wrapping ErrRefreshRejected are terminal; everything else is
	// a transient transport or provider failure.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}
