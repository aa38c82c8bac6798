package util

import (
	"os"
)

// UserHome returns the current user's home directory.
// Falls back to $HOME environment variable if os.UserHomeDir fails.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if home := os.Getenv("HOME"); home != "" {
			log.WithError(err).Warn("os.UserHomeDir failed, falling back to $HOME")
			return home
		}
		if home := os.Getenv("USERPROFILE"); home != "" {
			log.WithError(err).Warn("os.UserHomeDir failed, falling back to USERPROFILE")
			return home
		}
		return ""
	}
	return homeDir
}

// WorkingDir returns the current working directory. Settings, the registry
// folder and the generated client config are all resolved against it.
// If the working directory cannot be determined (for example because it was
// removed underneath the process) the user's home directory is used instead.
func WorkingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		home := UserHome()
		log.WithError(err).WithField("fallback", home).Warn("os.Getwd failed, falling back to home directory")
		return home
	}
	return wd
}
