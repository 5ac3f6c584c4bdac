package credentials

import "time"

// Credential holds the OAuth tokens for the connected storage account.
// There is exactly one credential per deployment; the store owns it and
// the token guard is the only writer.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// ExpiryDate is the absolute expiry of the access token in unix
	// milliseconds, matching the oauth_creds.json format.
	ExpiryDate int64 `json:"expiry_date"`
}

// ExpiresAt returns the access token expiry as a time.Time.
// The zero time is returned when no expiry is recorded.
func (c *Credential) ExpiresAt() time.Time {
	if c.ExpiryDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.ExpiryDate)
}

// HasRefreshToken reports whether the credential can be refreshed without
// sending the user back through the authorization flow.
func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// ExpiringSoon reports whether the access token must be treated as unusable
// at the given instant. A token with no recorded expiry counts as already
// expired. This is the only place the staleness rule lives.
func (c *Credential) ExpiringSoon(now time.Time, buffer time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.ExpiryDate == 0 {
		return true
	}
	return !now.Add(buffer).Before(c.ExpiresAt())
}
