package config

import (
	"bytes"
	"encoding/json"
	"unicode"

	"github.com/samber/oops"
)

// isUpperName reports whether name is a persisted setting name: it contains
// at least one letter and no lower-case or title-case letters.
func isUpperName(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// settingsFields has the persisted fields of Settings and none of its methods.
type settingsFields Settings

// Fields returns the persisted settings keyed by name, Extra included.
func (s *Settings) Fields() map[string]any {
	out := make(map[string]any, len(s.Extra)+10)
	for k, v := range s.Extra {
		out[k] = v
	}

	data, err := json.Marshal((*settingsFields)(s))
	if err != nil {
		log.WithError(err).Error("failed to encode settings fields")
		return out
	}
	var known map[string]any
	if err := decodeAny(data, &known); err != nil {
		log.WithError(err).Error("failed to decode settings fields")
		return out
	}
	for k, v := range known {
		if s.unset[k] && (v == nil || v == "") {
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the persisted fields and Extra as one object.
func (s *Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

// UnmarshalJSON merges every upper-case member of data into s. Members not
// present in data keep their current values.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return oops.Wrapf(err, "decode settings")
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

// setRaw replaces the setting name with the JSON value raw.
func (s *Settings) setRaw(name string, raw json.RawMessage) error {
	var err error
	switch name {
	case FieldAppName:
		err = replace(raw, &s.AppName)
	case FieldClientConfigPath:
		err = replace(raw, &s.ClientConfigPath)
	case FieldClientConfigPackage:
		err = replace(raw, &s.ClientConfigPackage)
	case FieldCompanyName:
		err = replace(raw, &s.CompanyName)
	case FieldPluginConfigs:
		var v map[string]any
		if err = decodeAny(raw, &v); err == nil {
			s.PluginConfigs = v
		}
	case FieldUpdatePatches:
		err = replace(raw, &s.UpdatePatches)
	case FieldMaxDownloadRetries:
		err = replace(raw, &s.MaxDownloadRetries)
	case FieldUpdateURLs:
		err = replace(raw, &s.UpdateURLs)
	case FieldPublicKey:
		err = replace(raw, &s.PublicKey)
	case FieldDataDir:
		err = replace(raw, &s.DataDir)
	default:
		var v any
		if err = decodeAny(raw, &v); err == nil {
			if s.Extra == nil {
				s.Extra = map[string]any{}
			}
			s.Extra[name] = v
		}
	}
	if err != nil {
		return oops.Wrapf(err, "setting %s", name)
	}
	delete(s.unset, name)
	return nil
}

// replace decodes raw into a fresh value before assigning it, so maps and
// slices are replaced rather than merged.
func replace[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// decodeAny decodes data keeping numbers as json.Number, so integers survive
// a round trip unchanged.
func decodeAny(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}
