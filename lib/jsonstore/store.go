package jsonstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/go-i2p/go-updater/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Options controls how a Store encodes its document.
type Options struct {
	Prefix     string
	Indent     string
	EscapeHTML bool
}

// DefaultOptions produces a pretty-printed document with two-space indentation.
var DefaultOptions = Options{Indent: "  "}

// reservedNames are never written to disk.
var reservedNames = map[string]struct{}{
	"__weakref__": {},
	"__module__":  {},
	"__dict__":    {},
	"__doc__":     {},
}

// Store is a JSON document backed by a single file.
type Store struct {
	path    string
	options Options
	entries map[string]any

	loaded bool
	dirty  bool
	synced *Options
}

// New returns a Store for the file at path using DefaultOptions.
// The file is not read until the store is first used.
func New(path string) *Store {
	return NewWithOptions(path, DefaultOptions)
}

// NewWithOptions returns a Store for the file at path that encodes with opts
// whenever Sync is called without explicit options.
func NewWithOptions(path string, opts Options) *Store {
	return &Store{
		path:    path,
		options: opts,
		entries: make(map[string]any),
	}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Loaded reports whether the backing file has been read.
func (s *Store) Loaded() bool {
	return s.loaded
}

// Dirty reports whether the mapping changed since the last successful sync.
func (s *Store) Dirty() bool {
	return s.dirty
}

func (s *Store) ensureLoaded() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.loadFromDisk()
}

// loadFromDisk merges the file contents into the mapping. Failures leave the
// mapping as it was and are only logged.
func (s *Store) loadFromDisk() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithFields(logger.Fields{
				"at":   "Store.loadFromDisk",
				"path": s.path,
			}).Debug("store file does not exist, starting empty")
			return
		}
		log.WithError(err).WithField("path", s.path).Warn("failed to read store file, starting empty")
		return
	}

	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("failed to decode store file, starting empty")
		return
	}

	for k, v := range doc {
		s.entries[k] = v
	}
	log.WithFields(logger.Fields{
		"at":      "Store.loadFromDisk",
		"path":    s.path,
		"records": len(doc),
	}).Debug("loaded store from disk")
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, error) {
	s.ensureLoaded()
	v, ok := s.entries[key]
	if !ok {
		return nil, oops.Wrapf(ErrKeyNotFound, "get %q", key)
	}
	return v, nil
}

// Set stores value under key. Nothing is written until Sync.
func (s *Store) Set(key string, value any) {
	s.ensureLoaded()
	s.entries[key] = value
	s.dirty = true
}

// Delete removes key from the store.
func (s *Store) Delete(key string) error {
	s.ensureLoaded()
	if _, ok := s.entries[key]; !ok {
		return oops.Wrapf(ErrKeyNotFound, "delete %q", key)
	}
	delete(s.entries, key)
	s.dirty = true
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.ensureLoaded()
	return len(s.entries)
}

// Keys returns the record names in sorted order.
func (s *Store) Keys() []string {
	s.ensureLoaded()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a shallow copy of the mapping.
func (s *Store) Copy() map[string]any {
	s.ensureLoaded()
	out := make(map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func (s *Store) String() string {
	s.ensureLoaded()
	return fmt.Sprint(s.entries)
}

// Sync writes the whole document to disk if it changed since the last sync,
// if opts differ from the options used last time, or if force is set. A nil
// opts selects the store's own options. It reports whether a write happened.
func (s *Store) Sync(opts *Options, force bool) (bool, error) {
	s.ensureLoaded()

	use := s.options
	if opts != nil {
		use = *opts
	}
	if s.synced == nil || *s.synced != use {
		s.dirty = true
	}
	if !s.dirty && !force {
		return false, nil
	}

	data, err := encode(sanitize(s.entries), use)
	if err != nil {
		return false, oops.Wrapf(err, "encode store %s", s.path)
	}
	if err := util.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return false, oops.Wrapf(err, "write store %s", s.path)
	}

	s.synced = &use
	s.dirty = false
	log.WithFields(logger.Fields{
		"at":    "Store.Sync",
		"path":  s.path,
		"bytes": len(data),
		"force": force,
	}).Debug("synced store to disk")
	return true, nil
}

func encode(doc map[string]any, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent(opts.Prefix, opts.Indent)
	enc.SetEscapeHTML(opts.EscapeHTML)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sanitize drops records that have no JSON representation.
func sanitize(entries map[string]any) map[string]any {
	out := make(map[string]any, len(entries))
	for k, v := range entries {
		if _, reserved := reservedNames[k]; reserved {
			continue
		}
		if !serializable(v) {
			log.WithFields(logger.Fields{
				"at":   "sanitize",
				"key":  k,
				"type": fmt.Sprintf("%T", v),
			}).Debug("skipping non-serializable record")
			continue
		}
		out[k] = v
	}
	return out
}

func serializable(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(*Store); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return false
	}
	return true
}
