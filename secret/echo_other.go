//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package secret

func suppressEcho(int) (restore func()) { return func() {} }

func lockMemory([]byte) bool { return false }

func unlockMemory([]byte) {}
