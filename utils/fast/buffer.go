// Package fast provides unchecked append/consume buffers for the canonical codec.
// Reads past the end panic; callers recover at the decoding boundary.
package fast

type Reader struct {
	buf    []byte
	offset int
}

type Writer struct {
	buf []byte
}

func NewReader(bb []byte) *Reader {
	return &Reader{buf: bb}
}

// NewWriter appends to bb. Pass a zero-length slice with spare capacity.
func NewWriter(bb []byte) *Writer {
	return &Writer{buf: bb}
}

func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

func (b *Writer) Bytes() []byte {
	return b.buf
}

// Len is the number of bytes written so far.
func (b *Writer) Len() int {
	return len(b.buf)
}

// Read returns the next n bytes. The result aliases the underlying buffer.
func (b *Reader) Read(n int) []byte {
	// bounded by len, not cap
	res := b.buf[b.offset:len(b.buf):len(b.buf)][:n]
	b.offset += n
	return res
}

func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

func (b *Reader) Position() int {
	return b.offset
}

func (b *Reader) Bytes() []byte {
	return b.buf
}

// Remaining is the number of unread bytes.
func (b *Reader) Remaining() int {
	return len(b.buf) - b.offset
}

func (b *Reader) Empty() bool {
	return b.offset == len(b.buf)
}
