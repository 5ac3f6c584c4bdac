package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/promoforge/driveguard/internal/env"
	"github.com/promoforge/driveguard/internal/logger"
)

// FileStore implements Store using a JSON file on disk
type FileStore struct {
	filePath string
}

// NewFileStore creates a file-backed credential store. The path is taken
// from DRIVEGUARD_CREDS_PATH, falling back to ~/.driveguard/oauth_creds.json.
func NewFileStore() (*FileStore, error) {
	if credsPath, ok := env.Get("DRIVEGUARD_CREDS_PATH"); ok {
		return &FileStore{filePath: credsPath}, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &FileStore{filePath: filepath.Join(homeDir, ".driveguard", "oauth_creds.json")}, nil
}

// NewFileStoreAt creates a file-backed credential store at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{filePath: path}
}

// Load reads the credential from disk
func (f *FileStore) Load(ctx context.Context) (*Credential, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	cred := &Credential{}
	if err := json.Unmarshal(data, cred); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", f.filePath, err)
	}
	return cred, nil
}

// Save writes the credential to disk. The write goes through a temp file
// and a rename so a crash mid-write never leaves a torn record behind.
func (f *FileStore) Save(ctx context.Context, cred *Credential) error {
	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".oauth_creds-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp credentials file: %w", err)
	}

	if err := os.Rename(tmpPath, f.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace credentials file %s: %w", f.filePath, err)
	}

	logger.Get().Debug().Str("path", f.filePath).Msg("Saved credentials")
	return nil
}

// Name returns a description of the store for logging
func (f *FileStore) Name() string {
	return fmt.Sprintf("FileStore(%s)", f.filePath)
}
