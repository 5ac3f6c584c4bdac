package credentials

import (
	"context"
	"errors"
)

// ErrNoCredential is returned by Store.Load when no credential has been
// installed yet.
var ErrNoCredential = errors.New("no credential stored")

// Store persists the storage-account credential. Save must be atomic from
// the caller's perspective: a concurrent Load never observes a credential
// with only some fields updated.
type Store interface {
	// Load retrieves the current credential, or ErrNoCredential.
	Load(ctx context.Context) (*Credential, error)

	// Save persists the credential, replacing any previous one.
	Save(ctx context.Context, cred *Credential) error
}
