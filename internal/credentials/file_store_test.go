package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "oauth_creds.json"))

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestFileStoreSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	store := NewFileStoreAt(path)
	ctx := context.Background()

	cred := &Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Scope:        "drive.file",
		ExpiryDate:   1748779200000,
	}

	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cred {
		t.Errorf("loaded credential %+v does not match saved %+v", loaded, cred)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected file mode 0600, got %v", info.Mode().Perm())
		}
	}
}

func TestFileStoreSaveReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	store := NewFileStoreAt(path)
	ctx := context.Background()

	first := &Credential{AccessToken: "a1", RefreshToken: "r1", ExpiryDate: 1000}
	second := &Credential{AccessToken: "a2", RefreshToken: "r2", ExpiryDate: 2000}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AccessToken != "a2" || loaded.RefreshToken != "r2" {
		t.Errorf("expected replaced credential, got %+v", loaded)
	}

	// No temp files may linger after the rename
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the credentials file in the directory, found %d entries", len(entries))
	}
}

func TestFileStoreLoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewFileStoreAt(path)
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupted credentials file")
	}
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}

	cred := &Credential{AccessToken: "a1", RefreshToken: "r1", ExpiryDate: 1000}
	if err := store.Save(ctx, cred); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cred {
		t.Errorf("loaded credential %+v does not match saved %+v", loaded, cred)
	}

	// Mutating the loaded copy must not affect the stored record
	loaded.AccessToken = "mutated"
	again, _ := store.Load(ctx)
	if again.AccessToken != "a1" {
		t.Error("store returned a shared reference instead of a copy")
	}
}
