package credentials

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. It is used by tests and
// by embedders that manage persistence themselves.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored credential, or ErrNoCredential.
func (m *MemoryStore) Load(ctx context.Context) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return nil, ErrNoCredential
	}
	cp := *m.cred
	return &cp, nil
}

// Save stores a copy of the credential.
func (m *MemoryStore) Save(ctx context.Context, cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cred
	m.cred = &cp
	return nil
}

// Name returns a description of the store for logging
func (m *MemoryStore) Name() string {
	return "MemoryStore"
}
