//go:build unix

package secret

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"

	"github.com/infodancer/lockauth/errors"
)

// maxEmptyReads bounds consecutive reads that return no data and no error.
const maxEmptyReads = 100

// Input is a readable stream backed by a file descriptor, such as os.Stdin.
type Input interface {
	io.Reader
	Fd() uintptr
}

// Acquire waits up to timeout for in to become readable and then reads one
// line of at most buf.Cap()-1 bytes into buf. A single trailing newline is
// dropped; every other byte is kept as is.
//
// It returns errors.ErrInputTimeout if nothing arrives in time,
// errors.ErrInputWait if the wait itself fails and errors.ErrInputRead if no
// data could be read. On error buf has already been destroyed.
func Acquire(in Input, buf *Buffer, timeout time.Duration) error {
	fd := int(in.Fd())

	restore := suppressEcho(fd)
	defer restore()

	if err := waitReadable(fd, timeout); err != nil {
		buf.Destroy()
		return err
	}

	if err := buf.fill(in); err != nil {
		buf.Destroy()
		return err
	}
	return nil
}

// waitReadable polls fd until it is readable or the deadline passes.
// Interrupted polls are resumed with the remaining time.
func waitReadable(fd int, timeout time.Duration) error {
	if fd < 0 {
		return fmt.Errorf("%w: invalid descriptor %d", errors.ErrInputWait, fd)
	}

	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		n, err := unix.Poll(fds, pollTimeout(time.Until(deadline)))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %w", errors.ErrInputWait, err)
		}
		if n == 0 {
			return errors.ErrInputTimeout
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return fmt.Errorf("%w: descriptor %d not open", errors.ErrInputWait, fd)
		}
		return nil
	}
}

// pollTimeout converts d to whole milliseconds, rounding up so a
// sub-millisecond remainder still waits.
func pollTimeout(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// fill reads one line directly into the buffer a byte at a time, so no
// intermediate copy of the secret is ever made and nothing past the line is
// consumed.
func (b *Buffer) fill(r io.Reader) error {
	limit := len(b.data) - 1
	n := 0
	empty := 0

	for n < limit {
		m, err := r.Read(b.data[n : n+1])
		if m == 1 {
			empty = 0
			if b.data[n] == '\n' {
				b.data[n] = 0
				break
			}
			n++
			continue
		}
		if err != nil {
			if n == 0 {
				return fmt.Errorf("%w: %w", errors.ErrInputRead, err)
			}
			break
		}
		empty++
		if empty >= maxEmptyReads {
			if n == 0 {
				return fmt.Errorf("%w: %w", errors.ErrInputRead, io.ErrNoProgress)
			}
			break
		}
	}

	b.n = n
	return nil
}
