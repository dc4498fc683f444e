// Package secret acquires a single secret from an untrusted input and holds
// it in a fixed-capacity buffer that is wiped when released.
package secret

import (
	"runtime"
	"time"
)

// DefaultTimeout is how long Acquire waits for input by default.
const DefaultTimeout = 15 * time.Second

// DefaultCapacity is the default buffer capacity in bytes, including the
// byte reserved for the terminator.
const DefaultCapacity = 512

// MinCapacity is the smallest usable capacity: one secret byte plus the
// reserved terminator.
const MinCapacity = 2

// Buffer holds secret material. Its capacity is fixed at creation and the
// backing memory is never reallocated, so wiping it wipes every byte the
// secret ever occupied.
//
// A Buffer must be released with Destroy. Destroy is idempotent, so callers
// defer it right after NewBuffer and may also call it early.
type Buffer struct {
	data      []byte
	n         int
	locked    bool
	destroyed bool
}

// NewBuffer allocates a zeroed buffer of the given capacity. The memory is
// locked against swapping when the platform allows it.
func NewBuffer(capacity int) *Buffer {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	b := &Buffer{data: make([]byte, capacity)}
	b.locked = lockMemory(b.data)
	return b
}

// Bytes returns a view of the secret. The view aliases the buffer and is
// wiped by Destroy; callers must not retain it.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the length of the secret.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Destroyed reports whether Destroy has been called.
func (b *Buffer) Destroyed() bool { return b.destroyed }

// Zeroed reports whether every byte of the backing memory is zero.
func (b *Buffer) Zeroed() bool {
	for _, c := range b.data {
		if c != 0 {
			return false
		}
	}
	return true
}

// Destroy overwrites the whole backing memory with zeros and unlocks it.
func (b *Buffer) Destroy() {
	wipe(b.data)
	b.n = 0
	if b.locked {
		unlockMemory(b.data)
		b.locked = false
	}
	b.destroyed = true
}

// wipe zeroes p. The KeepAlive keeps the stores observable so they are not
// dropped as dead writes.
func wipe(p []byte) {
	clear(p)
	runtime.KeepAlive(p)
}
