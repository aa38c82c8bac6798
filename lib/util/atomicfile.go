package util

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// WriteFileAtomic replaces the file at path with data. The data is written to
// a temporary file in the same directory, flushed, and renamed over path, so
// readers observe either the old or the new content and never a mix.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return oops.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return oops.Wrapf(err, "write %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return oops.Wrapf(err, "flush %s", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return oops.Wrapf(err, "close %s", tmpName)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return oops.Wrapf(err, "chmod %s", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return oops.Wrapf(err, "rename %s to %s", tmpName, path)
	}
	return nil
}
