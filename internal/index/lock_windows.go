//go:build windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"symnav/internal/errors"
)

// LockFile is the name of the writer lock inside the state directory.
const LockFile = "rename.lock"

// Lock is the writer lock. On Windows it is an O_EXCL marker file rather than
// an flock.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates the lock file exclusively, failing if it exists.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("create state directory %s", stateDir), err)
	}

	path := filepath.Join(stateDir, LockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Newf(errors.InternalError, "workspace is locked by another process (%s exists)", path)
		}
		return nil, errors.New(errors.InternalError, fmt.Sprintf("open lock file %s", path), err)
	}

	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.New(errors.InternalError, fmt.Sprintf("write PID to %s", path), err)
	}

	return &Lock{path: path, file: file}, nil
}

// Release releases the lock and removes the lock file. Safe on nil.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
}
