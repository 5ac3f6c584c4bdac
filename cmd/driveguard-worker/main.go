//go:build js && wasm

package main

import (
	"github.com/syumai/workers"

	"github.com/promoforge/driveguard/internal/credentials"
	"github.com/promoforge/driveguard/internal/env"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/oauth"
	"github.com/promoforge/driveguard/internal/server"
	"github.com/promoforge/driveguard/internal/tokenguard"
)

var srv *server.Server

func init() {
	store, err := credentials.NewKVStore()
	if err != nil {
		logger.Get().Error().Err(err).Msg("Failed to create KV credential store")
		// Continue anyway, requests will fail with not_authenticated
	}

	clientID := env.GetOrDefault("DRIVE_OAUTH_CLIENT_ID", "")
	clientSecret := env.GetOrDefault("DRIVE_OAUTH_CLIENT_SECRET", "")
	tokenURL := env.GetOrDefault("DRIVE_OAUTH_TOKEN_URL", oauth.DefaultTokenURL)

	exchanger := oauth.NewHTTPExchanger(tokenURL, clientID, clientSecret)
	guard := tokenguard.New(store, exchanger)

	srv = server.NewServer(store, guard)
}

func main() {
	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
