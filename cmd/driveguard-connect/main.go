package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/promoforge/driveguard/internal/credentials"
	"github.com/promoforge/driveguard/internal/env"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/oauth"
)

// driveguard-connect runs the one-time authorization-code flow that
// produces the initial credential. Everything after this point is handled
// by the refresh path in the server.
func main() {
	_ = godotenv.Load()

	clientID, ok := env.Get("DRIVE_OAUTH_CLIENT_ID")
	if !ok {
		logger.Get().Fatal().Msg("DRIVE_OAUTH_CLIENT_ID is not set")
	}
	clientSecret, ok := env.Get("DRIVE_OAUTH_CLIENT_SECRET")
	if !ok {
		logger.Get().Fatal().Msg("DRIVE_OAUTH_CLIENT_SECRET is not set")
	}
	redirectAddr := env.GetOrDefault("DRIVE_OAUTH_REDIRECT_ADDR", "localhost:45290")
	redirectURL := "http://" + redirectAddr + "/callback"

	store, err := credentials.NewFileStore()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to create credential store")
	}

	cfg := oauth.AuthConfig(clientID, clientSecret, redirectURL)
	state := uuid.NewString()

	fmt.Println("Open the following URL in your browser to connect the storage account:")
	fmt.Println()
	fmt.Println("  " + oauth.AuthCodeURL(cfg, state))
	fmt.Println()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Storage account connected. You can close this tab.")
		codeCh <- code
	})

	httpSrv := &http.Server{Addr: redirectAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Get().Fatal().Err(err).Msg("Failed to start redirect listener")
		}
	}()

	logger.Get().Info().Str("addr", redirectAddr).Msg("Waiting for authorization callback...")

	var code string
	select {
	case code = <-codeCh:
	case <-time.After(5 * time.Minute):
		logger.Get().Fatal().Msg("Timed out waiting for authorization callback")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	httpSrv.Shutdown(ctx)

	cred, err := oauth.ExchangeCode(ctx, cfg, code)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Authorization code exchange failed")
	}
	if !cred.HasRefreshToken() {
		logger.Get().Warn().Msg("Provider returned no refresh token; the connection will require reauthorization once the access token expires")
	}

	if err := store.Save(ctx, cred); err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to save credential")
	}

	logger.Get().Info().
		Str("store", store.Name()).
		Time("expires_at", cred.ExpiresAt()).
		Msg("Storage account connected")
}
