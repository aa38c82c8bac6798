package storage

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/go-i2p/go-updater/lib/jsonstore"
	"github.com/go-i2p/go-updater/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

const (
	// DefaultFolder is the registry directory created inside the base dir.
	DefaultFolder = ".go-updater"
	// DefaultFilename is the registry document inside DefaultFolder.
	DefaultFilename = "config.json"

	// KeyAppConfig holds the persisted settings bundle.
	KeyAppConfig = "app_config"
	// KeyKeypack holds key material written by the key handler.
	KeyKeypack = "keypack"
)

// Options locates the registry on disk.
type Options struct {
	// BaseDir defaults to the current working directory.
	BaseDir string
	// Folder defaults to DefaultFolder.
	Folder string
	// Filename defaults to DefaultFilename.
	Filename string
	// Refresh loads every persisted record when the shared state is created
	// instead of on first use.
	Refresh bool
}

func (o Options) withDefaults() Options {
	if o.BaseDir == "" {
		o.BaseDir = util.WorkingDir()
	}
	if o.Folder == "" {
		o.Folder = DefaultFolder
	}
	if o.Filename == "" {
		o.Filename = DefaultFilename
	}
	return o
}

// Shared is the record mapping every Storage handle built on it observes.
type Shared struct {
	dir      string
	filename string
	db       *jsonstore.Store
	records  map[string]any
	loaded   bool
}

// NewShared creates the registry directory if needed and prepares the shared
// record mapping over the registry document.
func NewShared(opts Options) (*Shared, error) {
	opts = opts.withDefaults()
	dir := filepath.Join(opts.BaseDir, opts.Folder)
	if err := util.EnsureDir(dir, 0o755); err != nil {
		return nil, oops.Wrapf(err, "create registry directory %s", dir)
	}
	filename := filepath.Join(dir, opts.Filename)

	log.WithFields(logger.Fields{
		"at":       "storage.NewShared",
		"dir":      dir,
		"filename": filename,
		"refresh":  opts.Refresh,
	}).Debug("opening registry")

	s := &Shared{
		dir:      dir,
		filename: filename,
		db:       jsonstore.New(filename),
		records:  make(map[string]any),
	}
	if opts.Refresh {
		s.load()
	}
	return s, nil
}

// load copies every persisted record into the shared mapping.
func (s *Shared) load() {
	s.loaded = true
	for _, k := range s.db.Keys() {
		v, err := s.db.Get(k)
		if err != nil {
			continue
		}
		s.records[k] = v
	}
}

func (s *Shared) ensureLoaded() {
	if !s.loaded {
		s.load()
	}
}

// Storage is a handle on a Shared registry.
type Storage struct {
	shared *Shared
}

// New returns a handle on shared.
func New(shared *Shared) *Storage {
	return &Storage{shared: shared}
}

// Open creates a fresh Shared registry and returns a handle on it.
func Open(opts Options) (*Storage, error) {
	shared, err := NewShared(opts)
	if err != nil {
		return nil, err
	}
	return New(shared), nil
}

// Shared returns the state behind the handle, for building further handles.
func (s *Storage) Shared() *Shared {
	return s.shared
}

// Dir returns the registry directory.
func (s *Storage) Dir() string {
	return s.shared.dir
}

// Filename returns the registry document path.
func (s *Storage) Filename() string {
	return s.shared.filename
}

// Save stores value under key and writes the complete registry to disk. When
// the write fails the previous record under key is restored, so a value that
// cannot be encoded does not block later saves.
func (s *Storage) Save(key string, value any) error {
	sh := s.shared
	sh.ensureLoaded()

	prev, existed := sh.records[key]
	sh.records[key] = value
	for k, v := range sh.records {
		sh.db.Set(k, v)
	}

	log.WithFields(logger.Fields{
		"at":      "Storage.Save",
		"key":     key,
		"records": len(sh.records),
	}).Debug("syncing registry to filesystem")
	if _, err := sh.db.Sync(nil, false); err != nil {
		log.WithError(err).WithField("key", key).Warn("registry sync failed, restoring previous record")
		if existed {
			sh.records[key] = prev
			sh.db.Set(key, prev)
		} else {
			delete(sh.records, key)
			_ = sh.db.Delete(key)
		}
		return oops.Wrapf(err, "save record %q", key)
	}
	return nil
}

// Load returns the value last saved under key through any handle on the
// same Shared registry.
func (s *Storage) Load(key string) (any, bool) {
	s.shared.ensureLoaded()
	v, ok := s.shared.records[key]
	return v, ok
}

// LoadInto decodes the record under key into dst. Records saved in this
// process and records read back from disk decode the same way.
func (s *Storage) LoadInto(key string, dst any) (bool, error) {
	v, ok := s.Load(key)
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return true, oops.Wrapf(err, "encode record %q", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, oops.Wrapf(err, "decode record %q", key)
	}
	return true, nil
}

// Keys returns the names of all records, sorted.
func (s *Storage) Keys() []string {
	s.shared.ensureLoaded()
	keys := make([]string, 0, len(s.shared.records))
	for k := range s.shared.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove always fails: neither the registry's own bindings (its directory,
// filename and backing store) nor its records can be deleted through a handle.
func (s *Storage) Remove(name string) error {
	log.WithFields(logger.Fields{
		"at":   "Storage.Remove",
		"name": name,
	}).Warn("refusing to remove registry binding")
	return oops.Wrapf(ErrImmutableBinding, "remove %q", name)
}
