// Package bbolt provides a BBolt-backed implementation of
// gate.UserDirectory so that login-attempt counters and lock flags survive
// process restarts.
package bbolt

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/fauxgate/gate"
)

var usersBucket = []byte("users")

// Directory is a BBolt-backed user directory. Users are stored as JSON
// values keyed by name in a single bucket.
type Directory struct {
	db *bbolt.DB
}

var _ gate.UserDirectory = (*Directory)(nil)

// NewDirectory returns a directory backed by the given BBolt database.
func NewDirectory(db *bbolt.DB) (*Directory, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating users bucket: %w", err)
	}
	return &Directory{db: db}, nil
}

// NewDirectoryFromFile opens a BBolt database at the given path and
// returns a new Directory.
func NewDirectoryFromFile(path string, options *bbolt.Options) (*Directory, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewDirectory(db)
}

// Close closes the underlying BBolt database.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Seed inserts the given users if they are not already present. Existing
// entries keep their persisted attempt counters and lock flags, so a
// restart does not reset a lockout.
func (d *Directory) Seed(users []gate.User) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		for _, u := range users {
			if b.Get([]byte(u.Name)) != nil {
				continue
			}
			data, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("encoding user %q: %w", u.Name, err)
			}
			if err := b.Put([]byte(u.Name), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByName returns the named user.
func (d *Directory) FindByName(name string) (gate.User, bool) {
	var user gate.User
	found := false
	_ = d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(usersBucket).Get([]byte(name))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		found = true
		return nil
	})
	if !found {
		return gate.User{}, false
	}
	return user, true
}

// Save upserts the user by name.
func (d *Directory) Save(user gate.User) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encoding user %q: %w", user.Name, err)
		}
		return tx.Bucket(usersBucket).Put([]byte(user.Name), data)
	})
}

// All returns every stored user in key order.
func (d *Directory) All() ([]gate.User, error) {
	var out []gate.User
	err := d.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(_, v []byte) error {
			var u gate.User
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}
			out = append(out, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
