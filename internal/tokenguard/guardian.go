package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/promoforge/driveguard/internal/credentials"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/oauth"
)

// DefaultExpiryBuffer is how early a token is treated as expiring, so
// refreshes happen before the upstream starts returning 401s.
const DefaultExpiryBuffer = 5 * time.Minute

// There is one credential per deployment, so all refreshes share one
// singleflight key.
const refreshKey = "credential"

// Guardian hands out access tokens that are guaranteed to have at least the
// expiry buffer of validity left, refreshing and persisting through the
// store when needed. It holds no credential state of its own; the store is
// the single place the credential lives.
type Guardian struct {
	store     credentials.Store
	exchanger oauth.Exchanger
	clock     clockwork.Clock
	buffer    time.Duration
	group     singleflight.Group
}

// Option configures a Guardian.
type Option func(*Guardian)

// WithExpiryBuffer overrides the default expiry buffer.
func WithExpiryBuffer(d time.Duration) Option {
	return func(g *Guardian) {
		g.buffer = d
	}
}

// WithClock replaces the wall clock. Tests use a fake clock to step through
// token expiry without sleeping.
func WithClock(clock clockwork.Clock) Option {
	return func(g *Guardian) {
		g.clock = clock
	}
}

// New creates a Guardian over the given store and exchanger.
func New(store credentials.Store, exchanger oauth.Exchanger, opts ...Option) *Guardian {
	g := &Guardian{
		store:     store,
		exchanger: exchanger,
		clock:     clockwork.NewRealClock(),
		buffer:    DefaultExpiryBuffer,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AccessToken returns a bearer token valid for at least the expiry buffer.
// The fresh-token path is side-effect free; the stale path performs a single
// refresh exchange shared across concurrent callers and persists the result
// before returning. Failures are classified: ErrNotAuthenticated,
// ErrReauthenticationRequired, ErrRefreshTransient, ErrPersistence.
func (g *Guardian) AccessToken(ctx context.Context) (string, error) {
	cred, err := g.load(ctx)
	if err != nil {
		return "", err
	}
	if !cred.ExpiringSoon(g.clock.Now(), g.buffer) {
		return cred.AccessToken, nil
	}
	return g.refresh(ctx, false)
}

// Refresh forces a refresh exchange regardless of the recorded expiry.
// Callers use it after the upstream rejected a token the expiry still
// considered valid. Concurrent forced refreshes collapse into one exchange.
func (g *Guardian) Refresh(ctx context.Context) (string, error) {
	return g.refresh(ctx, true)
}

// ExpiringSoon reports whether the stored token is inside the expiry buffer,
// without triggering a refresh. Uses the same staleness rule as AccessToken.
func (g *Guardian) ExpiringSoon(ctx context.Context) (bool, error) {
	cred, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	return cred.ExpiringSoon(g.clock.Now(), g.buffer), nil
}

func (g *Guardian) load(ctx context.Context) (*credentials.Credential, error) {
	cred, err := g.store.Load(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredential) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return cred, nil
}

// refresh runs the refresh exchange inside a singleflight so that at most
// one exchange is in flight for the credential. Late callers attach to the
// outstanding exchange and receive its token instead of issuing their own,
// which also protects rotating refresh tokens from racing exchanges.
func (g *Guardian) refresh(ctx context.Context, force bool) (string, error) {
	token, err, _ := g.group.Do(refreshKey, func() (interface{}, error) {
		return g.doRefresh(ctx, force)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (g *Guardian) doRefresh(ctx context.Context, force bool) (string, error) {
	// Re-load inside the flight: a refresh that completed while this caller
	// was waiting for the flight slot already updated the store.
	cred, err := g.load(ctx)
	if err != nil {
		return "", err
	}

	now := g.clock.Now()
	if !force && !cred.ExpiringSoon(now, g.buffer) {
		return cred.AccessToken, nil
	}

	if !cred.HasRefreshToken() {
		return "", fmt.Errorf("%w: credential has no refresh token", ErrReauthenticationRequired)
	}

	resp, err := g.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, oauth.ErrRefreshRejected) {
			logger.Get().Warn().Err(err).Msg("Provider rejected refresh token; reconnect required")
			return "", fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshTransient, err)
	}

	updated := *cred
	updated.AccessToken = resp.AccessToken
	updated.ExpiryDate = now.Add(time.Duration(resp.ExpiresIn) * time.Second).UnixMilli()
	if resp.RefreshToken != "" {
		// Provider rotates refresh tokens; the old one is dead.
		updated.RefreshToken = resp.RefreshToken
	}
	if resp.TokenType != "" {
		updated.TokenType = resp.TokenType
	}
	if resp.Scope != "" {
		updated.Scope = resp.Scope
	}

	// Persist before returning so a crash after the exchange cannot leave
	// the old, now-invalid token as the only one on disk.
	if err := g.store.Save(ctx, &updated); err != nil {
		logger.Get().Error().Err(err).Msg("Refreshed token could not be saved; it will be lost on restart")
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	logger.Get().Info().Time("expires_at", updated.ExpiresAt()).Bool("rotated_refresh_token", resp.RefreshToken != "").Msg("Refreshed OAuth token")
	return updated.AccessToken, nil
}
