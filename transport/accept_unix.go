//go:build unix

package transport

import (
	"errors"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
)

// errnos that indicate the listening socket itself is fine and the next accept may succeed.
var transientErrnos = []syscall.Errno{
	unix.EAGAIN,
	unix.EINTR,
	unix.EMFILE,
	unix.ENFILE,
	unix.ENOBUFS,
	unix.ENOMEM,
	unix.ECONNABORTED,
}

func isTransient(err error) bool {
	if isTimeout(err) {
		return true
	}

	return isTransientErrno(err)
}

// ErrnoName returns the symbolic name of the errno carried by err, e.g. EMFILE, or an empty
// string if there's none.
func ErrnoName(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}

	return unix.ErrnoName(errno)
}

func isTransientErrno(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	return slices.Contains(transientErrnos, errno)
}
