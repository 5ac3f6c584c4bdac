package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/promoforge/driveguard/internal/credentials"
	"github.com/promoforge/driveguard/internal/drive"
	"github.com/promoforge/driveguard/internal/env"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/oauth"
	"github.com/promoforge/driveguard/internal/server"
	"github.com/promoforge/driveguard/internal/tokenguard"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	port := env.GetOrDefault("PORT", "9880")

	clientID, ok := env.Get("DRIVE_OAUTH_CLIENT_ID")
	if !ok {
		logger.Get().Fatal().Msg("DRIVE_OAUTH_CLIENT_ID is not set")
	}
	clientSecret, ok := env.Get("DRIVE_OAUTH_CLIENT_SECRET")
	if !ok {
		logger.Get().Fatal().Msg("DRIVE_OAUTH_CLIENT_SECRET is not set")
	}
	tokenURL := env.GetOrDefault("DRIVE_OAUTH_TOKEN_URL", oauth.DefaultTokenURL)

	store, err := credentials.NewFileStore()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to create credential store")
	}
	logger.Get().Info().Str("store", store.Name()).Msg("Using credential store")

	var opts []tokenguard.Option
	if bufferStr, ok := env.Get("TOKEN_EXPIRY_BUFFER"); ok {
		buffer, err := time.ParseDuration(bufferStr)
		if err != nil {
			logger.Get().Warn().Err(err).Str("value", bufferStr).Msg("Invalid token expiry buffer, using default")
		} else {
			opts = append(opts, tokenguard.WithExpiryBuffer(buffer))
		}
	}

	exchanger := oauth.NewHTTPExchanger(tokenURL, clientID, clientSecret)
	guard := tokenguard.New(store, exchanger, opts...)

	// Startup check against the storage API
	logger.Get().Info().Msg("Performing startup storage account check...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if about, err := drive.NewClient(guard).About(ctx); err != nil {
		logger.Get().Warn().Err(err).Msg("Startup storage account check failed.")
	} else {
		logger.Get().Info().
			Str("account", about.User.EmailAddress).
			Str("usage", about.StorageQuota.Usage).
			Msg("Startup storage account check successful.")
	}
	cancel()

	srv := server.NewServer(store, guard)

	if err := srv.Start(":" + port); err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to start server")
	}
}
