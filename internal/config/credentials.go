package config

import (
	"os"
	"path/filepath"
	"strings"
)

// CredentialStore persists the opaque session token across runs, the way the
// browser build keeps it in localStorage. An absent token is simply the
// unauthenticated state, never an error.
type CredentialStore struct {
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Token returns the stored credential, or "" when logged out.
func (c *CredentialStore) Token() string {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Save writes the credential at login.
func (c *CredentialStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(token+"\n"), 0o600)
}

// Clear removes the credential at logout. Clearing an already-empty store
// is a no-op.
func (c *CredentialStore) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
