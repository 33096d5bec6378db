package iips

// Buffer is the append/scan/consume receive ring shared by all three
// codecs. It is a fixed-capacity byte region holding exactly one logical
// stream: bytes [0, Len()) are valid unprocessed data, the rest is scratch.
// Consuming a prefix shifts the remaining tail down to offset 0 so the next
// Append always lands at the end of live data. This mirrors the teacher's
// bytes.Buffer-based resync loop in internal/serial/codec.go, but as a
// plain fixed-size slice: the protocol here never needs to grow past
// capacity, it only needs to shift.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a Buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of valid buffered bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the valid prefix of the buffer. The slice is only valid
// until the next Append/Consume/DropOne call.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Append copies p onto the end of the buffered data, truncating to
// whatever remaining capacity is available. It returns the number of bytes
// actually copied; excess bytes are silently dropped, matching spec.md
// §4.4 ("the caller sizes reads to capacity − length").
func (b *Buffer) Append(p []byte) int {
	room := len(b.data) - b.n
	if room <= 0 {
		return 0
	}
	if len(p) > room {
		p = p[:room]
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return len(p)
}

// Consume shifts the buffer's tail down by n bytes, discarding the
// consumed prefix. n <= 0 is a no-op; n >= Len() empties the buffer.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.n = 0
		return
	}
	copy(b.data, b.data[n:b.n])
	b.n -= n
}

// DropOne consumes a single byte, used during resynchronization.
func (b *Buffer) DropOne() {
	if b.n > 0 {
		b.Consume(1)
	}
}
