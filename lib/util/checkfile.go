package util

import (
	"os"
)

// Check if a file exists and is readable etc
// returns false if not
func CheckFileExists(fpath string) bool {
	_, e := os.Stat(fpath)
	return e == nil
}

// EnsureDir creates dir with the given permissions if it does not exist yet.
func EnsureDir(dir string, perm os.FileMode) error {
	if CheckFileExists(dir) {
		return nil
	}
	log.WithField("dir", dir).Info("Creating directory")
	return os.MkdirAll(dir, perm)
}
