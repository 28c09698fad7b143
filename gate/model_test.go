package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionHasExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := Session{Expiration: now}

	// Expiry is strict: equal-to-now is not expired.
	assert.False(t, session.HasExpired(now))
	assert.False(t, session.HasExpired(now.Add(-time.Second)))
	assert.True(t, session.HasExpired(now.Add(time.Second)))
}

func TestSessionResetExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := Session{Expiration: now}

	session.ResetExpiration(now, 20*time.Minute)
	assert.Equal(t, now.Add(20*time.Minute), session.Expiration)

	// Repeated renewal with advancing time never decreases the expiration.
	prev := session.Expiration
	for i := 1; i <= 5; i++ {
		later := now.Add(time.Duration(i) * time.Minute)
		session.ResetExpiration(later, 20*time.Minute)
		assert.True(t, !session.Expiration.Before(prev))
		prev = session.Expiration
	}
}

func TestUserFailedLogon(t *testing.T) {
	user := User{Name: "bob"}

	user.FailedLogon(3)
	assert.Equal(t, 1, user.LoginAttempts)
	assert.False(t, user.Locked)

	user.FailedLogon(3)
	assert.Equal(t, 2, user.LoginAttempts)
	assert.False(t, user.Locked)

	// The third consecutive failure locks the account.
	user.FailedLogon(3)
	assert.Equal(t, 3, user.LoginAttempts)
	assert.True(t, user.Locked)

	// The lock is a one-way latch.
	user.FailedLogon(3)
	assert.True(t, user.Locked)
}
