package jsonstore

import "errors"

// ErrKeyNotFound is returned when a record is absent after the store loaded.
var ErrKeyNotFound = errors.New("key not found")
