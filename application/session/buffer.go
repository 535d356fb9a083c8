package session

// ReadBuffer holds the request body for uploads. The engine drains it through Read,
// which advances the cursor.
type ReadBuffer struct {
	data   []byte
	cursor int
}

// Replace discards the current contents, stores a copy of p and rewinds.
func (b *ReadBuffer) Replace(p []byte) {
	b.data = append(b.data[:0], p...)
	b.cursor = 0
}

// Rewind moves the cursor back to the start.
func (b *ReadBuffer) Rewind() {
	b.cursor = 0
}

// Read is the upload read callback. It copies up to len(p) bytes from the cursor
// and returns the count copied, zero at the end of the buffer.
func (b *ReadBuffer) Read(p []byte) int {
	if b.cursor >= len(b.data) {
		return 0
	}
	n := copy(p, b.data[b.cursor:])
	b.cursor += n
	return n
}

// Reset truncates the buffer in place.
func (b *ReadBuffer) Reset() {
	b.data = b.data[:0]
	b.cursor = 0
}

// Len returns the total number of bytes held.
func (b *ReadBuffer) Len() int {
	return len(b.data)
}

// WriteBuffer accumulates response bytes. A positive limit caps its size.
type WriteBuffer struct {
	data  []byte
	limit int
}

// NewWriteBuffer creates a buffer capped at limit bytes; 0 means unbounded.
func NewWriteBuffer(limit int) *WriteBuffer {
	if limit < 0 {
		limit = 0
	}
	return &WriteBuffer{limit: limit}
}

// Write is the download write callback. It stores p and returns len(p), or stores
// nothing and returns 0 when p would exceed the limit.
func (b *WriteBuffer) Write(p []byte) int {
	if b.limit > 0 && len(b.data)+len(p) > b.limit {
		return 0
	}
	b.data = append(b.data, p...)
	return len(p)
}

// Bytes returns the accumulated bytes. The slice is only valid until the next
// Write or Reset.
func (b *WriteBuffer) Bytes() []byte {
	return b.data
}

// String returns the accumulated bytes as text.
func (b *WriteBuffer) String() string {
	return string(b.data)
}

// Len returns the number of bytes held.
func (b *WriteBuffer) Len() int {
	return len(b.data)
}

// Limit returns the size cap, 0 when unbounded.
func (b *WriteBuffer) Limit() int {
	return b.limit
}

// Truncate drops everything after the first n bytes.
func (b *WriteBuffer) Truncate(n int) {
	if n >= 0 && n < len(b.data) {
		b.data = b.data[:n]
	}
}

// Reset truncates the buffer in place, keeping its capacity.
func (b *WriteBuffer) Reset() {
	b.data = b.data[:0]
}
