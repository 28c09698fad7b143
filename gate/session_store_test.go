package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore()
	session, err := NewSession(User{Name: "bob"}, time.Now(), 20*time.Minute)
	require.NoError(t, err)

	store.Create(session)

	got, ok := store.Get(session.SessionID)
	require.True(t, ok)
	assert.Equal(t, "bob", got.User.Name)
	assert.Equal(t, session.Expiration, got.Expiration)
}

func TestSessionStoreGetMissing(t *testing.T) {
	store := NewSessionStore()

	_, ok := store.Get("no-such-token")
	assert.False(t, ok)
}

func TestSessionStoreRemove(t *testing.T) {
	store := NewSessionStore()
	session, err := NewSession(User{Name: "bob"}, time.Now(), time.Minute)
	require.NoError(t, err)
	store.Create(session)

	store.Remove(session.SessionID)

	_, ok := store.Get(session.SessionID)
	assert.False(t, ok)

	// Removing a missing token must not panic.
	store.Remove("never-existed")
}

func TestSessionStoreFindByUserName(t *testing.T) {
	store := NewSessionStore()
	bob, err := NewSession(User{Name: "bob"}, time.Now(), time.Minute)
	require.NoError(t, err)
	alice, err := NewSession(User{Name: "alice"}, time.Now(), time.Minute)
	require.NoError(t, err)
	store.Create(bob)
	store.Create(alice)

	got, ok := store.FindByUserName("alice")
	require.True(t, ok)
	assert.Equal(t, alice.SessionID, got.SessionID)

	_, ok = store.FindByUserName("mallory")
	assert.False(t, ok)
}

func TestSessionTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := NewSession(User{Name: "bob"}, time.Now(), time.Minute)
		require.NoError(t, err)
		require.Len(t, session.SessionID, 32, "16 random bytes hex encoded")
		require.False(t, seen[session.SessionID], "duplicate session token")
		seen[session.SessionID] = true
	}
}
