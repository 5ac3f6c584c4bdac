package tokenguard

import "errors"

var (
	// ErrNotAuthenticated means no credential has been installed at all.
	// The authorization flow has to run before any token can be issued.
	ErrNotAuthenticated = errors.New("not authenticated: no credential installed")

	// ErrReauthenticationRequired means a credential exists but cannot be
	// refreshed: the refresh token is missing or the provider rejected it.
	// Retrying does not help; the user must reconnect the storage account.
	ErrReauthenticationRequired = errors.New("reauthentication required")

	// ErrRefreshTransient is a network, timeout, or provider-side failure
	// during refresh. The stored credential is left untouched and the
	// caller may retry with backoff.
	ErrRefreshTransient = errors.New("transient token refresh failure")

	// ErrPersistence means the refresh exchange succeeded but the new
	// credential could not be saved. The fresh token exists only in memory
	// and will be lost on restart.
	ErrPersistence = errors.New("failed to persist refreshed credential")
)
