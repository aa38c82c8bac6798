package storage

import "errors"

// ErrImmutableBinding is returned when a caller tries to remove one of the
// registry's own bindings.
var ErrImmutableBinding = errors.New("registry bindings cannot be removed")
