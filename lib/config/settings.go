package config

import (
	"encoding/json"
	"sort"

	"github.com/go-i2p/go-updater/lib/storage"
	"github.com/go-i2p/go-updater/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Settings are the persisted settings of an update repository.
//
// A field is absent from the persisted record and from the client config only
// after Unset, or when it was never given a value (UPDATE_URLS, PUBLIC_KEY and
// DATA_DIR start out that way). Any value assigned through Set, MergeFrom or
// LoadPersisted is kept, empty strings, empty lists and null included.
// UpdatePatches and MaxDownloadRetries are always present.
type Settings struct {
	AppName             string         `json:"APP_NAME"`
	ClientConfigPath    []string       `json:"CLIENT_CONFIG_PATH"`
	ClientConfigPackage string         `json:"CLIENT_CONFIG_PACKAGE"`
	CompanyName         string         `json:"COMPANY_NAME"`
	PluginConfigs       map[string]any `json:"PLUGIN_CONFIGS"`
	UpdatePatches       bool           `json:"UPDATE_PATCHES"`
	MaxDownloadRetries  int            `json:"MAX_DOWNLOAD_RETRIES"`
	UpdateURLs          []string       `json:"UPDATE_URLS"`
	PublicKey           *string        `json:"PUBLIC_KEY"`
	DataDir             string         `json:"DATA_DIR"`

	// Extra holds upper-case settings without a dedicated field.
	Extra map[string]any `json:"-"`

	// unset names fields that are left out while they hold a zero value.
	unset map[string]bool

	client  bool
	workDir string
	db      *storage.Storage
}

// Options selects how Settings are created.
type Options struct {
	// Client marks settings that configure a downstream client. They get no
	// registry and never touch the disk.
	Client bool
	// Load hydrates the settings from the registry right away. Ignored in
	// client mode.
	Load bool
	// Shared is the registry state to attach to. A new one rooted at the
	// working directory is created when nil.
	Shared *storage.Shared
	// WorkDir overrides the directory DATA_DIR and the client config path are
	// resolved against. Defaults to the process working directory.
	WorkDir string
}

// New returns default settings updated with the upper-case entries of
// overrides.
func New(overrides map[string]any, opts Options) (*Settings, error) {
	s := Defaults()
	s.client = opts.Client
	s.workDir = opts.WorkDir

	for _, name := range sortedKeys(overrides) {
		if !isUpperName(name) {
			log.WithField("name", name).Debug("ignoring transient override")
			continue
		}
		if err := s.Set(name, overrides[name]); err != nil {
			return nil, err
		}
	}

	if s.client {
		return s, nil
	}

	shared := opts.Shared
	if shared == nil {
		var err error
		shared, err = storage.NewShared(storage.Options{BaseDir: s.WorkDir()})
		if err != nil {
			return nil, err
		}
	}
	s.db = storage.New(shared)

	if opts.Load {
		if err := s.LoadPersisted(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// IsClient reports whether the settings were created in client mode.
func (s *Settings) IsClient() bool {
	return s.client
}

// WorkDir returns the directory paths are resolved against.
func (s *Settings) WorkDir() string {
	if s.workDir != "" {
		return s.workDir
	}
	return util.WorkingDir()
}

// MergeFrom copies every upper-case field of src into the settings,
// overwriting existing values. src must encode as a JSON object, so structs
// contribute their exported fields under their JSON names (a field named
// APP_NAME, or one tagged `json:"APP_NAME"`).
func (s *Settings) MergeFrom(src any) error {
	if !s.client {
		return oops.Wrapf(ErrNotClientConfigured, "merge from %T", src)
	}

	data, err := json.Marshal(src)
	if err != nil {
		return oops.Wrapf(err, "encode %T", src)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return oops.Wrapf(err, "%T does not encode as an object", src)
	}

	for _, name := range sortedKeys(raw) {
		if !isUpperName(name) {
			continue
		}
		if err := s.setRaw(name, raw[name]); err != nil {
			return err
		}
	}
	return nil
}

// LoadPersisted merges the settings record from the registry into s and sets
// DATA_DIR to the working directory. A missing record leaves the current
// values in place.
func (s *Settings) LoadPersisted() error {
	if s.db == nil {
		return oops.Wrapf(ErrNoStorageAccess, "load settings")
	}

	var record map[string]json.RawMessage
	if _, err := s.db.LoadInto(storage.KeyAppConfig, &record); err != nil {
		log.WithError(err).Warn("settings record is unreadable, using defaults")
		record = nil
	}

	for _, name := range sortedKeys(record) {
		if !isUpperName(name) {
			continue
		}
		if err := s.setRaw(name, record[name]); err != nil {
			log.WithError(err).WithField("name", name).Warn("skipping unreadable setting")
		}
	}
	s.DataDir = s.WorkDir()

	log.WithFields(logger.Fields{
		"at":       "Settings.LoadPersisted",
		"records":  len(record),
		"data_dir": s.DataDir,
	}).Debug("loaded settings")
	return nil
}

// SavePersisted writes the persisted settings to the registry and then
// regenerates the client config.
func (s *Settings) SavePersisted() error {
	if s.db == nil {
		return oops.Wrapf(ErrNoStorageAccess, "save settings")
	}

	log.Info("Saving Config")
	record, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := s.db.Save(storage.KeyAppConfig, record); err != nil {
		return err
	}
	log.Info("Config saved")

	if err := s.WriteClientConfig(); err != nil {
		return err
	}
	log.Info("Wrote client config")
	return nil
}

// snapshot returns a deep copy of the persisted fields, decoupled from later
// mutations of s.
func (s *Settings) snapshot() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, oops.Wrapf(err, "encode settings")
	}
	var out map[string]any
	if err := decodeAny(data, &out); err != nil {
		return nil, oops.Wrapf(err, "decode settings")
	}
	return out, nil
}

// Get returns the value of the persisted setting name.
func (s *Settings) Get(name string) (any, bool) {
	v, ok := s.Fields()[name]
	return v, ok
}

// Set assigns value to the persisted setting name. The value must be
// assignable through JSON to the field's type.
func (s *Settings) Set(name string, value any) error {
	if !isUpperName(name) {
		return oops.Wrapf(ErrTransientField, "set %q", name)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return oops.Wrapf(err, "encode %s", name)
	}
	return s.setRaw(name, data)
}

// Unset removes an optional setting. Fields that are always present are
// reset to their defaults instead.
func (s *Settings) Unset(name string) {
	d := Defaults()
	switch name {
	case FieldAppName:
		s.AppName = ""
	case FieldClientConfigPath:
		s.ClientConfigPath = nil
	case FieldClientConfigPackage:
		s.ClientConfigPackage = ""
	case FieldCompanyName:
		s.CompanyName = ""
	case FieldPluginConfigs:
		s.PluginConfigs = nil
	case FieldUpdatePatches:
		s.UpdatePatches = d.UpdatePatches
		return
	case FieldMaxDownloadRetries:
		s.MaxDownloadRetries = d.MaxDownloadRetries
		return
	case FieldUpdateURLs:
		s.UpdateURLs = nil
	case FieldPublicKey:
		s.PublicKey = nil
	case FieldDataDir:
		s.DataDir = ""
	default:
		delete(s.Extra, name)
		return
	}
	s.markUnset(name)
}

func (s *Settings) markUnset(name string) {
	if s.unset == nil {
		s.unset = map[string]bool{}
	}
	s.unset[name] = true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
