package config

import (
	"bytes"
	"go/format"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/go-i2p/go-updater/lib/storage"
	"github.com/go-i2p/go-updater/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var clientConfigTemplate = template.Must(template.New("client_config").Parse(`// Code generated by go-updater. DO NOT EDIT.

package {{ .Package }}

// ClientConfig values used by the update client.
var (
{{- range .Assignments }}
	{{ .Name }} = {{ .Value }}
{{- end }}
)
`))

type assignment struct {
	Name  string
	Value string
}

type clientConfigData struct {
	Package     string
	Assignments []assignment
}

// keypack is the part of the key handler's record the client config needs.
type keypack struct {
	Client struct {
		OfflinePublic *string `json:"offline_public"`
	} `json:"client"`
}

// ClientConfigFile returns where the client config is written.
func (s *Settings) ClientConfigFile() (string, error) {
	if len(s.ClientConfigPath) == 0 {
		return "", oops.Errorf("%s is not set", FieldClientConfigPath)
	}
	parts := append([]string{s.WorkDir()}, s.ClientConfigPath...)
	return filepath.Join(parts...), nil
}

// WriteClientConfig regenerates the client config file from the current
// settings and the offline public key in the keypack record.
func (s *Settings) WriteClientConfig() error {
	filename, err := s.ClientConfigFile()
	if err != nil {
		return err
	}
	src, err := s.RenderClientConfig()
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"at":   "Settings.WriteClientConfig",
		"file": filename,
	}).Debug("writing client config")
	if err := util.WriteFileAtomic(filename, src, 0o644); err != nil {
		return oops.Wrapf(err, "write client config")
	}
	return nil
}

// RenderClientConfig returns the gofmt'd client config source.
func (s *Settings) RenderClientConfig() ([]byte, error) {
	pkg := s.ClientConfigPackage
	if pkg == "" {
		pkg = DefaultClientConfigPackage
	}
	if !token.IsIdentifier(pkg) {
		return nil, oops.Errorf("%s %q is not a valid Go package name", FieldClientConfigPackage, pkg)
	}

	data := clientConfigData{Package: pkg}
	add := func(name, value string) {
		log.WithField("name", name).Debug("adding to client config")
		data.Assignments = append(data.Assignments, assignment{Name: name, Value: value})
	}
	fields := s.Fields()
	has := func(name string) bool {
		_, ok := fields[name]
		return ok
	}
	if has(FieldAppName) {
		add(FieldAppName, strconv.Quote(s.AppName))
	}
	if has(FieldCompanyName) {
		add(FieldCompanyName, strconv.Quote(s.CompanyName))
	}
	if has(FieldUpdateURLs) {
		add(FieldUpdateURLs, goStringSlice(s.UpdateURLs))
	}
	if has(FieldPublicKey) {
		add(FieldPublicKey, strconv.Quote(s.offlinePublicKey()))
	}
	add(FieldMaxDownloadRetries, strconv.Itoa(s.MaxDownloadRetries))

	var buf bytes.Buffer
	if err := clientConfigTemplate.Execute(&buf, data); err != nil {
		return nil, oops.Wrapf(err, "render client config")
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, oops.Wrapf(err, "format client config")
	}
	return src, nil
}

// offlinePublicKey reads keypack.client.offline_public from the registry.
// Missing or malformed key material yields an empty key.
func (s *Settings) offlinePublicKey() string {
	if s.db == nil {
		return ""
	}
	var kp keypack
	found, err := s.db.LoadInto(storage.KeyKeypack, &kp)
	if err != nil {
		log.WithError(err).Warn("keypack record is unreadable")
		return ""
	}
	if !found || kp.Client.OfflinePublic == nil {
		log.Debug("no offline public key in keypack")
		return ""
	}
	return *kp.Client.OfflinePublic
}

func goStringSlice(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}
