package config

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-i2p/go-updater/lib/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteClientConfig_WithKeypack(t *testing.T) {
	shared, dir := newRepo(t)
	keys := storage.New(shared)
	require.NoError(t, keys.Save(storage.KeyKeypack, map[string]any{
		"client": map[string]any{"offline_public": "c2lnbmluZy1rZXk="},
	}))

	s, err := New(map[string]any{
		"APP_NAME":    "Acme",
		"UPDATE_URLS": []string{"https://a.example/u", "https://b.example/u"},
		"PUBLIC_KEY":  "placeholder",
	}, Options{Shared: shared, WorkDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.SavePersisted())

	src := readClientConfig(t, dir)
	assertAssignment(t, src, "APP_NAME", `"Acme"`)
	assertAssignment(t, src, "UPDATE_URLS", `[]string{"https://a.example/u", "https://b.example/u"}`)
	assertAssignment(t, src, "PUBLIC_KEY", `"c2lnbmluZy1rZXk="`)

	order := []string{"APP_NAME", "COMPANY_NAME", "UPDATE_URLS", "PUBLIC_KEY", "MAX_DOWNLOAD_RETRIES"}
	last := -1
	for _, name := range order {
		idx := strings.Index(src, "\t"+name+" ")
		require.GreaterOrEqual(t, idx, 0, name)
		assert.Greater(t, idx, last, "%s out of order", name)
		last = idx
	}

	// The keypack written by the key handler is still in the registry.
	_, ok := keys.Load(storage.KeyKeypack)
	assert.True(t, ok)
}

func TestWriteClientConfig_MissingKeyMaterial(t *testing.T) {
	tests := []struct {
		name    string
		keypack any
	}{
		{"no record", nil},
		{"no client section", map[string]any{"repo": map[string]any{}}},
		{"no public key", map[string]any{"client": map[string]any{}}},
		{"wrong shape", "not a keypack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared, dir := newRepo(t)
			if tt.keypack != nil {
				require.NoError(t, storage.New(shared).Save(storage.KeyKeypack, tt.keypack))
			}
			s, err := New(map[string]any{"PUBLIC_KEY": "x"}, Options{Shared: shared, WorkDir: dir})
			require.NoError(t, err)

			require.NoError(t, s.WriteClientConfig())
			assertAssignment(t, readClientConfig(t, dir), "PUBLIC_KEY", `""`)
		})
	}
}

func TestRenderClientConfig_IsValidGo(t *testing.T) {
	s, err := New(map[string]any{
		"APP_NAME":    `quote " and \ backslash`,
		"UPDATE_URLS": []string{},
	}, Options{Client: true})
	require.NoError(t, err)

	src, err := s.RenderClientConfig()
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "client_config.go", src, 0)
	require.NoError(t, err, string(src))
	assertAssignment(t, string(src), "UPDATE_URLS", "[]string{}")
	assert.NotContains(t, string(src), "PUBLIC_KEY", "client mode has no key material but PUBLIC_KEY is absent anyway")
}

func TestRenderClientConfig_OmitsAbsentNames(t *testing.T) {
	s, err := New(nil, Options{Client: true})
	require.NoError(t, err)
	s.Unset(FieldAppName)
	s.Unset(FieldCompanyName)

	src, err := s.RenderClientConfig()
	require.NoError(t, err)
	assert.NotContains(t, string(src), "APP_NAME")
	assert.NotContains(t, string(src), "COMPANY_NAME")
	assertAssignment(t, string(src), "MAX_DOWNLOAD_RETRIES", "3")
}

func TestRenderClientConfig_Package(t *testing.T) {
	s, err := New(map[string]any{"CLIENT_CONFIG_PACKAGE": "updates"}, Options{Client: true})
	require.NoError(t, err)
	src, err := s.RenderClientConfig()
	require.NoError(t, err)
	assert.Contains(t, string(src), "package updates\n")

	require.NoError(t, s.Set(FieldClientConfigPackage, "not-valid"))
	_, err = s.RenderClientConfig()
	assert.Error(t, err)
}

func TestWriteClientConfig_Path(t *testing.T) {
	shared, dir := newRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "client", "config"), 0o755))

	s, err := New(map[string]any{
		"CLIENT_CONFIG_PATH": []string{"client", "config", "generated.go"},
	}, Options{Shared: shared, WorkDir: dir})
	require.NoError(t, err)

	file, err := s.ClientConfigFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "client", "config", "generated.go"), file)

	require.NoError(t, s.WriteClientConfig())
	assert.FileExists(t, file)

	s.Unset(FieldClientConfigPath)
	assert.Error(t, s.WriteClientConfig())
}

func TestSavePersisted_ClientConfigWriteFailure(t *testing.T) {
	shared, dir := newRepo(t)
	s, err := New(map[string]any{
		"CLIENT_CONFIG_PATH": []string{"missing", "client_config.go"},
	}, Options{Shared: shared, WorkDir: dir})
	require.NoError(t, err)

	assert.Error(t, s.SavePersisted())

	// The settings record was saved before the client config failed.
	_, ok := storage.New(shared).Load(storage.KeyAppConfig)
	assert.True(t, ok)
}

func TestWriteClientConfig_Overwrites(t *testing.T) {
	shared, dir := newRepo(t)
	s, err := New(nil, Options{Shared: shared, WorkDir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultClientConfigFile), []byte("stale content that is much longer than the generated file would ever be, padding padding padding padding padding padding padding padding padding padding padding"), 0o644))
	require.NoError(t, s.WriteClientConfig())

	src := readClientConfig(t, dir)
	assert.NotContains(t, src, "stale")
	assert.True(t, strings.HasPrefix(src, "// Code generated by go-updater. DO NOT EDIT."))
}
