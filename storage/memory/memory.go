// Package memory provides a thread-safe in-memory implementation of
// gate.UserDirectory, seeded from the configured user collection.
package memory

import (
	"maps"
	"sync"

	"github.com/jmcleod/fauxgate/gate"
)

// Directory is a thread-safe in-memory user directory. Login-attempt
// counters and lock flags are lost on restart, matching the behavior of
// the gateway being simulated.
type Directory struct {
	mu    sync.RWMutex
	users map[string]gate.User
	order []string
}

var _ gate.UserDirectory = (*Directory)(nil)

// NewDirectory creates a directory seeded with the given users. Later
// duplicates by name overwrite earlier ones.
func NewDirectory(users []gate.User) *Directory {
	d := &Directory{users: make(map[string]gate.User, len(users))}
	for _, u := range users {
		if _, ok := d.users[u.Name]; !ok {
			d.order = append(d.order, u.Name)
		}
		d.users[u.Name] = cloneUser(u)
	}
	return d
}

func cloneUser(u gate.User) gate.User {
	u.AuthHeaders = maps.Clone(u.AuthHeaders)
	return u
}

// FindByName returns a copy of the named user.
func (d *Directory) FindByName(name string) (gate.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[name]
	if !ok {
		return gate.User{}, false
	}
	return cloneUser(u), true
}

// Save upserts the user by name.
func (d *Directory) Save(user gate.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[user.Name]; !ok {
		d.order = append(d.order, user.Name)
	}
	d.users[user.Name] = cloneUser(user)
	return nil
}

// All returns the users in insertion order. Used by configuration
// consumers that observe the backing collection.
func (d *Directory) All() []gate.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]gate.User, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, cloneUser(d.users[name]))
	}
	return out
}
