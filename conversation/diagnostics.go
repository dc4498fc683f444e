package conversation

// DefaultDiagnosticsCapacity is the default capture size in bytes.
const DefaultDiagnosticsCapacity = 1024

// Diagnostics is an append-only text buffer with a fixed capacity. Text
// beyond the capacity is dropped silently. The zero value and a nil
// *Diagnostics discard everything.
type Diagnostics struct {
	buf []byte
}

// NewDiagnostics returns an empty buffer holding at most capacity bytes.
func NewDiagnostics(capacity int) *Diagnostics {
	if capacity < 0 {
		capacity = 0
	}
	return &Diagnostics{buf: make([]byte, 0, capacity)}
}

// Append adds msg, truncated to the remaining space.
func (d *Diagnostics) Append(msg string) {
	if d == nil {
		return
	}
	remaining := cap(d.buf) - len(d.buf)
	if remaining <= 0 {
		return
	}
	if len(msg) > remaining {
		msg = msg[:remaining]
	}
	d.buf = append(d.buf, msg...)
}

// String returns the captured text.
func (d *Diagnostics) String() string {
	if d == nil {
		return ""
	}
	return string(d.buf)
}

// Len returns the number of captured bytes.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.buf)
}

// Cap returns the capacity.
func (d *Diagnostics) Cap() int {
	if d == nil {
		return 0
	}
	return cap(d.buf)
}
