package config

import "errors"

var (
	// ErrNoStorageAccess is returned by operations that need the registry
	// when the settings were created in client mode.
	ErrNoStorageAccess = errors.New("settings are configured with no file access")
	// ErrNotClientConfigured is returned by MergeFrom outside client mode.
	ErrNotClientConfigured = errors.New("settings are not configured for client use")
	// ErrTransientField is returned when setting a name that is not a
	// persisted (all upper-case) setting.
	ErrTransientField = errors.New("not a persisted setting")
)
