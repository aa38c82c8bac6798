package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestShared(t *testing.T, base string) *Shared {
	t.Helper()
	shared, err := NewShared(Options{BaseDir: base})
	require.NoError(t, err)
	return shared
}

func TestNewShared_CreatesDirectory(t *testing.T) {
	base := t.TempDir()
	s := New(openTestShared(t, base))

	assert.Equal(t, filepath.Join(base, DefaultFolder), s.Dir())
	assert.Equal(t, filepath.Join(base, DefaultFolder, DefaultFilename), s.Filename())

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(s.Filename())
	assert.True(t, os.IsNotExist(err), "no file is written before the first save")
}

// TestStorage_SharedState verifies that handles over one Shared observe each
// other's saves.
func TestStorage_SharedState(t *testing.T) {
	shared := openTestShared(t, t.TempDir())
	a := New(shared)
	b := New(shared)

	require.NoError(t, a.Save("x", 1))

	v, ok := b.Load("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

// TestStorage_SavePersistsEverything verifies that a save through one handle
// writes records saved through other handles as well.
func TestStorage_SavePersistsEverything(t *testing.T) {
	base := t.TempDir()
	shared := openTestShared(t, base)
	a := New(shared)
	b := New(shared)

	require.NoError(t, a.Save("first", "one"))
	require.NoError(t, b.Save("second", "two"))

	data, err := os.ReadFile(a.Filename())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"first": "one", "second": "two"}, doc)
}

func TestStorage_LoadMissing(t *testing.T) {
	s := New(openTestShared(t, t.TempDir()))

	v, ok := s.Load("absent")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStorage_ReloadFromDisk(t *testing.T) {
	base := t.TempDir()
	first := New(openTestShared(t, base))
	require.NoError(t, first.Save("app_config", map[string]any{"APP_NAME": "Acme"}))
	require.NoError(t, first.Save("retries", 3))

	tests := []struct {
		name    string
		refresh bool
	}{
		{"lazy", false},
		{"refresh", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared, err := NewShared(Options{BaseDir: base, Refresh: tt.refresh})
			require.NoError(t, err)
			assert.Equal(t, tt.refresh, shared.loaded)

			s := New(shared)
			assert.Equal(t, []string{"app_config", "retries"}, s.Keys())

			var cfg struct {
				AppName string `json:"APP_NAME"`
			}
			found, err := s.LoadInto("app_config", &cfg)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "Acme", cfg.AppName)

			var retries int
			found, err = s.LoadInto("retries", &retries)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 3, retries)
		})
	}
}

func TestStorage_LoadIntoMissing(t *testing.T) {
	s := New(openTestShared(t, t.TempDir()))

	var dst map[string]any
	found, err := s.LoadInto("absent", &dst)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, dst)
}

func TestStorage_LoadIntoTypeMismatch(t *testing.T) {
	s := New(openTestShared(t, t.TempDir()))
	require.NoError(t, s.Save("name", "not a number"))

	var n int
	found, err := s.LoadInto("name", &n)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestStorage_CorruptFileStartsEmpty(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, DefaultFolder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFilename), []byte("{broken"), 0o644))

	s := New(openTestShared(t, base))
	assert.Empty(t, s.Keys())

	require.NoError(t, s.Save("x", true))
	v, ok := s.Load("x")
	assert.True(t, ok)
	assert.Equal(t, true, v)
}

func TestStorage_Remove(t *testing.T) {
	s := New(openTestShared(t, t.TempDir()))
	require.NoError(t, s.Save("x", 1))

	for _, name := range []string{"db", "config_dir", "filename", "x"} {
		err := s.Remove(name)
		assert.ErrorIs(t, err, ErrImmutableBinding, name)
	}

	_, ok := s.Load("x")
	assert.True(t, ok)
}

func TestStorage_SaveWriteFailure(t *testing.T) {
	base := t.TempDir()
	s := New(openTestShared(t, base))
	require.NoError(t, os.RemoveAll(s.Dir()))

	err := s.Save("x", 1)
	assert.Error(t, err, "write failures must reach the caller")
}

func TestOpen_CustomLocation(t *testing.T) {
	base := t.TempDir()
	s, err := Open(Options{BaseDir: base, Folder: "repo", Filename: "db.json"})
	require.NoError(t, err)

	require.NoError(t, s.Save("x", 1))
	assert.FileExists(t, filepath.Join(base, "repo", "db.json"))
	assert.Same(t, s.Shared(), New(s.Shared()).Shared())
}

// TestStorage_SaveFailureRestoresRecord verifies that a record that cannot be
// encoded is dropped again, leaving the registry usable.
func TestStorage_SaveFailureRestoresRecord(t *testing.T) {
	shared := openTestShared(t, t.TempDir())
	s := New(shared)

	require.NoError(t, s.Save("kept", "v1"))

	err := s.Save("kept", map[string]any{"f": func() {}})
	assert.Error(t, err)
	v, ok := s.Load("kept")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	assert.Error(t, s.Save("bad", map[string]any{"f": func() {}}))
	_, ok = s.Load("bad")
	assert.False(t, ok)

	require.NoError(t, s.Save("other", 2))

	data, err := os.ReadFile(s.Filename())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"kept": "v1", "other": float64(2)}, doc)
}
