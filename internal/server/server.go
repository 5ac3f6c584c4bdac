package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/promoforge/driveguard/internal/credentials"
	"github.com/promoforge/driveguard/internal/drive"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/tokenguard"
)

// Server exposes the credential lifecycle over HTTP: admin endpoints for
// installing and inspecting the credential, a token endpoint for backend
// callers, and asset passthrough endpoints backed by the storage client.
type Server struct {
	store       credentials.Store
	guard       *tokenguard.Guardian
	driveClient *drive.Client
	mux         *http.ServeMux
}

// NewServer creates a new server instance over the given store and guard.
func NewServer(store credentials.Store, guard *tokenguard.Guardian) *Server {
	s := &Server{
		store:       store,
		guard:       guard,
		driveClient: drive.NewClient(guard),
		mux:         http.NewServeMux(),
	}
	s.setupRoutes()

	return s
}

// Start launches the server. Credentials are checked once at startup for
// operator feedback; staleness is otherwise evaluated lazily per request,
// there is no background refresh loop.
func (s *Server) Start(addr string) error {
	s.logCredentialStatus()

	logger.Get().Info().Msgf("Starting driveguard server on %s", addr)
	return http.ListenAndServe(addr, loggingMiddleware(s.mux))
}

func (s *Server) logCredentialStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	expiring, err := s.guard.ExpiringSoon(ctx)
	switch {
	case errors.Is(err, tokenguard.ErrNotAuthenticated):
		logger.Get().Warn().Msg("No credential installed; connect a storage account before serving traffic")
	case err != nil:
		logger.Get().Error().Err(err).Msg("Failed to check credential status")
	case expiring:
		logger.Get().Info().Msg("Stored token is expiring soon; it will be refreshed on first use")
	default:
		logger.Get().Info().Msg("Stored token is valid")
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/admin/credentials", s.adminMiddleware(s.credentialsHandler))
	s.mux.HandleFunc("/admin/credentials/status", s.adminMiddleware(s.credentialsStatusHandler))
	s.mux.HandleFunc("/admin/token", s.adminMiddleware(s.tokenHandler))
	s.mux.HandleFunc("/assets", s.adminMiddleware(s.assetsHandler))
	s.mux.HandleFunc("/about", s.adminMiddleware(s.aboutHandler))
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// credentialsHandler handles POST /admin/credentials for installing the
// credential produced by the authorization flow.
func (s *Server) credentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var cred credentials.Credential
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		logger.Get().Error().Err(err).Msg("Failed to decode credentials request")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if cred.AccessToken == "" && cred.RefreshToken == "" {
		http.Error(w, "Credential must carry an access token or a refresh token", http.StatusBadRequest)
		return
	}

	if err := s.store.Save(r.Context(), &cred); err != nil {
		logger.Get().Error().Err(err).Msg("Failed to save credentials")
		http.Error(w, "Failed to save credentials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"success": true,
		"message": "Credentials saved successfully",
	}
	json.NewEncoder(w).Encode(response)
}

// credentialsStatusHandler handles GET /admin/credentials/status
func (s *Server) credentialsStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cred, err := s.store.Load(r.Context())

	response := map[string]interface{}{
		"type":           "oauth",
		"hasCredentials": err == nil && cred != nil,
	}

	if err == nil && cred != nil {
		expiring, expErr := s.guard.ExpiringSoon(r.Context())
		if expErr == nil {
			response["expiring_soon"] = expiring
		}
		if cred.ExpiryDate > 0 {
			response["expiry_date"] = cred.ExpiryDate
			response["expiry_date_formatted"] = cred.ExpiresAt().Format(time.RFC3339)
		}
		response["has_refresh_token"] = cred.HasRefreshToken()
	} else if err != nil && !errors.Is(err, credentials.ErrNoCredential) {
		response["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// tokenHandler handles GET /admin/token: backend callers fetch a bearer
// token that is valid for at least the expiry buffer. Failure classes map
// to distinct status codes so callers can tell "retry" from "reconnect".
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	token, err := s.guard.AccessToken(r.Context())
	if err != nil {
		writeTokenError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

// writeTokenError maps guard failures to HTTP status codes and stable error
// codes. Reauthentication cases must not look retryable to callers.
func writeTokenError(w http.ResponseWriter, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, tokenguard.ErrNotAuthenticated):
		status, code = http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, tokenguard.ErrReauthenticationRequired):
		status, code = http.StatusUnauthorized, "reauthentication_required"
	case errors.Is(err, tokenguard.ErrRefreshTransient):
		status, code = http.StatusServiceUnavailable, "refresh_failed_transient"
	case errors.Is(err, tokenguard.ErrPersistence):
		status, code = http.StatusInternalServerError, "persistence_failure"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	logger.Get().Error().Err(err).Str("code", code).Msg("Token request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": err.Error(),
	})
}

// assetsHandler handles POST /assets (upload) and GET /assets (listing).
func (s *Server) assetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.uploadAssetHandler(w, r)
	case http.MethodGet:
		s.listAssetsHandler(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) uploadAssetHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing 'name' query parameter", http.StatusBadRequest)
		return
	}
	mimeType := r.Header.Get("Content-Type")
	folderID := r.URL.Query().Get("folder")

	var parents []string
	if folderID != "" {
		parents = append(parents, folderID)
	}

	file, err := s.driveClient.UploadAsset(r.Context(), name, mimeType, r.Body, parents...)
	if err != nil {
		logger.Get().Error().Err(err).Str("name", name).Msg("Asset upload failed")
		writeUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(file)
}

func (s *Server) listAssetsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.driveClient.ListAssets(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Asset listing failed")
		writeUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// aboutHandler handles GET /about with the connected account details.
func (s *Server) aboutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	about, err := s.driveClient.About(r.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("About request failed")
		writeUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(about)
}

// writeUpstreamError surfaces guard failures with their proper status when
// they bubble up through the storage client; everything else is a gateway
// error.
func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, tokenguard.ErrNotAuthenticated) ||
		errors.Is(err, tokenguard.ErrReauthenticationRequired) ||
		errors.Is(err, tokenguard.ErrRefreshTransient) ||
		errors.Is(err, tokenguard.ErrPersistence) {
		writeTokenError(w, err)
		return
	}
	http.Error(w, "Upstream storage request failed: "+err.Error(), http.StatusBadGateway)
}
