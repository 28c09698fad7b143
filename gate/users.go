package gate

// UserDirectory abstracts the configured user collection so that the
// pipeline can look up credentials and persist login-attempt counters and
// lock flags. Implementations must be safe for concurrent use; see
// storage/memory and storage/bbolt.
type UserDirectory interface {
	// FindByName returns a copy of the named user.
	FindByName(name string) (User, bool)
	// Save upserts the user by name so that other consumers of the same
	// backing collection observe the mutation.
	Save(user User) error
}
