//go:build js && wasm

package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/promoforge/driveguard/internal/logger"

	"github.com/syumai/workers/cloudflare/kv"
)

const kvCredentialKey = "driveguard_oauth_credentials"

// KVStore implements Store using Cloudflare KV storage
type KVStore struct {
	kvStore *kv.Namespace
}

// NewKVStore creates a Cloudflare KV-backed credential store.
// The binding name is configured in wrangler.toml.
func NewKVStore() (*KVStore, error) {
	kvStore, err := kv.NewNamespace("driveguard_kv")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &KVStore{kvStore: kvStore}, nil
}

// Load retrieves the credential from Cloudflare KV
func (s *KVStore) Load(ctx context.Context) (*Credential, error) {
	credsJSON, err := s.kvStore.GetString(kvCredentialKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials from KV: %w", err)
	}
	if credsJSON == "" {
		return nil, ErrNoCredential
	}

	cred := &Credential{}
	if err := json.Unmarshal([]byte(credsJSON), cred); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}
	return cred, nil
}

// Save stores the credential in Cloudflare KV
func (s *KVStore) Save(ctx context.Context, cred *Credential) error {
	credsJSON, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := s.kvStore.PutString(kvCredentialKey, string(credsJSON), nil); err != nil {
		return fmt.Errorf("failed to store credentials in KV: %w", err)
	}

	logger.Get().Debug().Msg("Saved credentials to Cloudflare KV")
	return nil
}

// Name returns a description of the store for logging
func (s *KVStore) Name() string {
	return "KVStore"
}
