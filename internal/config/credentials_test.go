package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialStore_RoundTrip(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "nested", "token"))

	assert.Equal(t, "", store.Token(), "fresh store must read as logged out")

	require.NoError(t, store.Save("tok-abc123"))
	assert.Equal(t, "tok-abc123", store.Token())

	require.NoError(t, store.Clear())
	assert.Equal(t, "", store.Token())

	// clearing twice is fine; logged out is a state, not an error
	require.NoError(t, store.Clear())
}
