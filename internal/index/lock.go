//go:build !windows

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"symnav/internal/errors"
)

// LockFile is the name of the writer lock inside the state directory.
const LockFile = "rename.lock"

// Lock is an exclusive, cross-process writer lock on a workspace. It is held
// from rename planning until the commit has finished.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes the writer lock in stateDir without blocking. It fails
// if another process holds it.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("create state directory %s", stateDir), err)
	}

	path := filepath.Join(stateDir, LockFile)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("open lock file %s", path), err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if content, readErr := os.ReadFile(path); readErr == nil && len(content) > 0 {
			pid := strings.TrimSpace(string(content))
			return nil, errors.Newf(errors.InternalError, "workspace is locked by another process (PID %s); another rename may be running", pid)
		}
		return nil, errors.Newf(errors.InternalError, "workspace is locked by another process; another rename may be running")
	}

	if err := writePID(file); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, errors.New(errors.InternalError, fmt.Sprintf("write PID to %s", path), err)
	}

	return &Lock{path: path, file: file}, nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}
	_, err := file.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// Release releases the lock and removes the lock file. Safe on nil.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path)
	l.file = nil
}
