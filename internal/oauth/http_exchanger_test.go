package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "at-2",
			ExpiresIn:   3600,
			TokenType:   "Bearer",
			Scope:       "drive.file",
		})
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	resp, err := exchanger.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", resp.AccessToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Empty(t, resp.RefreshToken, "provider did not rotate the refresh token")
}

func TestRefreshSuccessWithRotation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "at-2",
			RefreshToken: "rt-2",
			ExpiresIn:    3600,
		})
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	resp, err := exchanger.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "rt-2", resp.RefreshToken)
}

func TestRefreshRejectedByProvider(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Token has been expired or revoked.",
		})
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	_, err := exchanger.Refresh(context.Background(), "rt-revoked")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshRejected)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshServerErrorIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	_, err := exchanger.Refresh(context.Background(), "rt-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshRejected, "5xx must stay retryable")
}

func TestRefreshRateLimitIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	_, err := exchanger.Refresh(context.Background(), "rt-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshRejected)
}

func TestRefreshTimeout(t *testing.T) {
	blocked := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer ts.Close()
	defer close(blocked)

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := exchanger.Refresh(ctx, "rt-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrRefreshRejected)
}

func TestRefreshEmptyAccessToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{ExpiresIn: 3600})
	}))
	defer ts.Close()

	exchanger := NewHTTPExchanger(ts.URL, "client-id", "client-secret")

	_, err := exchanger.Refresh(context.Background(), "rt-1")
	require.Error(t, err)
}
