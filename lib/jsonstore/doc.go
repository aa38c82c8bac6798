// Package jsonstore implements a single-file JSON document store.
//
// A Store keeps a flat mapping of record names to JSON-compatible values. The
// backing file is not touched until the first read or write, at which point it
// is loaded exactly once. A file that is missing or cannot be decoded is
// logged and treated as an empty document; read-side failures never reach the
// caller.
//
// Mutations only change the in-memory mapping and mark the store dirty.
// Sync writes the whole document back in one piece: the encoded document goes
// to a temporary file in the same directory which is then renamed over the
// target, so a crash leaves either the previous or the new content on disk.
//
// A Store is not safe for concurrent use.
package jsonstore
