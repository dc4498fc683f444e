//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package secret

import (
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// suppressEcho turns off terminal echo on fd if it is a terminal and returns
// a function restoring the previous state. It is a no-op for pipes and files.
func suppressEcho(fd int) (restore func()) {
	noop := func() {}
	if fd < 0 || !term.IsTerminal(fd) {
		return noop
	}

	state, err := term.GetState(fd)
	if err != nil {
		return noop
	}

	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return noop
	}
	t.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		return noop
	}

	return func() { _ = term.Restore(fd, state) }
}

func lockMemory(p []byte) bool {
	return len(p) > 0 && unix.Mlock(p) == nil
}

func unlockMemory(p []byte) {
	_ = unix.Munlock(p)
}
