package gate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an identity record held by a UserDirectory. Passwords are stored
// and compared in cleartext, matching the simplicity of the gateway this
// tool simulates.
type User struct {
	Name          string            `json:"name"`
	Password      string            `json:"password"`
	AuthHeaders   map[string]string `json:"auth_headers,omitempty"`
	LoginAttempts int               `json:"login_attempts"`
	Locked        bool              `json:"locked"`
}

// FailedLogon records one bad-password attempt and latches the account
// locked once the attempt count reaches maxAttempts. The lock is one-way;
// only an external reset (editing the directory) clears it.
func (u *User) FailedLogon(maxAttempts int) {
	u.LoginAttempts++
	if u.LoginAttempts >= maxAttempts {
		u.Locked = true
	}
}

// Session represents an authenticated browser. The embedded User is a
// snapshot taken at creation time, not a live link into the directory.
type Session struct {
	SessionID  string    `json:"session_id"`
	User       User      `json:"user"`
	Expiration time.Time `json:"expiration"`
}

// NewSession creates a session for user with a fresh random token and an
// expiration of now + expiry.
func NewSession(user User, now time.Time, expiry time.Duration) (Session, error) {
	id, err := newSessionID()
	if err != nil {
		return Session{}, err
	}
	return Session{
		SessionID:  id,
		User:       user,
		Expiration: now.Add(expiry),
	}, nil
}

// ResetExpiration slides the session's expiration to now + expiry.
func (s *Session) ResetExpiration(now time.Time, expiry time.Duration) {
	s.Expiration = now.Add(expiry)
}

// HasExpired reports whether the session's expiration has passed. A session
// expiring exactly at now is still live.
func (s *Session) HasExpired(now time.Time) bool {
	return s.Expiration.Before(now)
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// FormCredStatus is the outcome of a login-form submission.
type FormCredStatus string

const (
	StatusGoodLogin   FormCredStatus = "good_login"
	StatusBadLogin    FormCredStatus = "bad_login"
	StatusBadPassword FormCredStatus = "bad_password"
)

// FormCred is the one-shot record bridging a login POST and the next
// request to a protected resource. User is nil when the submitted username
// matched no directory entry.
type FormCred struct {
	FormCredID string
	User       *User
	Status     FormCredStatus
	TargetURL  string
}

// NewFormCred creates a credential-exchange record with a fresh random
// token. The token scheme is deliberately distinct from session IDs.
func NewFormCred(user *User, status FormCredStatus, targetURL string) FormCred {
	return FormCred{
		FormCredID: uuid.NewString(),
		User:       user,
		Status:     status,
		TargetURL:  targetURL,
	}
}

// PathFilterRule is one ordered access-control entry. The URL pattern may
// carry a leading {N} segment-skip marker and leading/trailing * wildcards.
type PathFilterRule struct {
	URL       string `json:"url"`
	Protected bool   `json:"protected"`
}
