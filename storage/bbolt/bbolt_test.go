package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/fauxgate/gate"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	dir, err := NewDirectoryFromFile(filepath.Join(t.TempDir(), "users.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	return dir
}

func TestSaveAndFindByName(t *testing.T) {
	dir := newTestDirectory(t)

	require.NoError(t, dir.Save(gate.User{
		Name:        "bob",
		Password:    "test1234",
		AuthHeaders: map[string]string{"client-id": "cid123"},
	}))

	user, ok := dir.FindByName("bob")
	require.True(t, ok)
	assert.Equal(t, "test1234", user.Password)
	assert.Equal(t, "cid123", user.AuthHeaders["client-id"])

	_, ok = dir.FindByName("mallory")
	assert.False(t, ok)
}

func TestSeedDoesNotClobberPersistedState(t *testing.T) {
	dir := newTestDirectory(t)

	require.NoError(t, dir.Seed([]gate.User{{Name: "bob", Password: "test1234"}}))

	// Simulate a lockout, then a restart that re-seeds from config.
	user, _ := dir.FindByName("bob")
	user.LoginAttempts = 3
	user.Locked = true
	require.NoError(t, dir.Save(user))

	require.NoError(t, dir.Seed([]gate.User{
		{Name: "bob", Password: "test1234"},
		{Name: "alice", Password: "hunter2"},
	}))

	got, ok := dir.FindByName("bob")
	require.True(t, ok)
	assert.True(t, got.Locked, "re-seeding must not reset a lockout")
	assert.Equal(t, 3, got.LoginAttempts)

	_, ok = dir.FindByName("alice")
	assert.True(t, ok, "new config users are added on seed")
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	dir, err := NewDirectoryFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, dir.Save(gate.User{Name: "bob", LoginAttempts: 2}))
	require.NoError(t, dir.Close())

	dir, err = NewDirectoryFromFile(path, nil)
	require.NoError(t, err)
	defer dir.Close()

	user, ok := dir.FindByName("bob")
	require.True(t, ok)
	assert.Equal(t, 2, user.LoginAttempts)
}

func TestAll(t *testing.T) {
	dir := newTestDirectory(t)
	require.NoError(t, dir.Save(gate.User{Name: "bob"}))
	require.NoError(t, dir.Save(gate.User{Name: "alice"}))

	all, err := dir.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
