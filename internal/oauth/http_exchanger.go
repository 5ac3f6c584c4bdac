package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	internalhttp "github.com/promoforge/driveguard/internal/http"
	"github.com/promoforge/driveguard/internal/logger"
)

// DefaultTokenURL is the Google OAuth2 token endpoint used by the Drive
// integration unless overridden.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// refreshTimeout bounds the refresh round-trip; a hanging provider is
// treated the same as any other transient failure.
const refreshTimeout = 30 * time.Second

// HTTPExchanger implements Exchanger against an OAuth2 token endpoint
// using the standard refresh_token grant.
type HTTPExchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   internalhttp.HTTPClient
}

// NewHTTPExchanger creates an exchanger for the given token endpoint and
// client credentials.
func NewHTTPExchanger(tokenURL, clientID, clientSecret string) *HTTPExchanger {
	return &HTTPExchanger{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   internalhttp.NewHTTPClient(),
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (e *HTTPExchanger) WithHTTPClient(client internalhttp.HTTPClient) *HTTPExchanger {
	e.httpClient = client
	return e
}

// oauthErrorBody is the error document OAuth2 providers return with 4xx
// responses, per RFC 6749 section 5.2.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh performs the refresh_token grant against the token endpoint.
func (e *HTTPExchanger) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Add("client_id", e.clientID)
	form.Add("client_secret", e.clientSecret)
	form.Add("refresh_token", refreshToken)
	form.Add("grant_type", "refresh_token")

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, e.classifyFailure(resp.StatusCode, body)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("refresh response contained no access token")
	}

	logger.Get().Debug().Int("expires_in", tokenResp.ExpiresIn).Bool("rotated", tokenResp.RefreshToken != "").Msg("Token refresh exchange succeeded")
	return &tokenResp, nil
}

// classifyFailure separates a provider verdict on the refresh token from a
// transient provider problem. 4xx with an OAuth error body means the grant
// is dead; 408/429/5xx and unparseable bodies stay retryable.
func (e *HTTPExchanger) classifyFailure(status int, body []byte) error {
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		var oauthErr oauthErrorBody
		if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
			return fmt.Errorf("%w: %s (%s)", ErrRefreshRejected, oauthErr.Error, oauthErr.ErrorDescription)
		}
		return fmt.Errorf("%w: status %d: %s", ErrRefreshRejected, status, string(body))
	}
	return fmt.Errorf("token refresh failed with status %d: %s", status, string(body))
}
