// Package utils provides internal filesystem helpers used by the file sink.
//
// The helpers cover directory creation, clearing read-only permission bits
// before deletion, and classifying errors as I/O failures that are worth
// retrying.
package utils

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/hyp3rd/ewrap"
)

const ownerWrite = 0o200

// EnsureDir creates dir and any missing parents with the given permissions.
func EnsureDir(dir string, perm os.FileMode) error {
	if dir == "" {
		return ewrap.New("directory cannot be empty")
	}

	err := os.MkdirAll(dir, perm)
	if err != nil {
		return ewrap.Wrapf(err, "creating log directory").
			WithMetadata("path", dir)
	}

	return nil
}

// ClearReadOnly adds the owner-write bit to path so it can be removed on
// platforms that refuse to delete read-only files.
func ClearReadOnly(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err //nolint:wrapcheck // callers inspect fs.ErrNotExist.
	}

	if info.Mode().Perm()&ownerWrite != 0 {
		return nil
	}

	return os.Chmod(path, info.Mode().Perm()|ownerWrite) //nolint:wrapcheck // same as above.
}

// IsIOError reports whether err originates from the filesystem or the OS and
// is therefore worth retrying. Missing files are not I/O failures; they are
// reported separately through IsNotExist.
func IsIOError(err error) bool {
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return false
	}

	var (
		pathErr    *fs.PathError
		linkErr    *os.LinkError
		syscallErr *os.SyscallError
		errno      syscall.Errno
	)

	switch {
	case errors.As(err, &pathErr), errors.As(err, &linkErr), errors.As(err, &syscallErr), errors.As(err, &errno):
		return true
	case errors.Is(err, io.ErrShortWrite), errors.Is(err, fs.ErrClosed):
		return true
	default:
		return false
	}
}

// IsNotExist reports whether err means the file is already gone.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
