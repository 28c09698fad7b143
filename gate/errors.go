package gate

import "errors"

// ErrInvalidFilter is returned when a path filter template carries a
// negative segment-count marker. It indicates a configuration bug, not a
// per-request condition.
var ErrInvalidFilter = errors.New("invalid path filter")
