// Package bits implements an LSB-first bit stream used for length tags and flags
// in the canonical codec.
package bits

type (
	Array struct {
		Bytes []byte
	}

	Writer struct {
		*Array
		bitOffset int
	}

	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

func NewWriter(arr *Array) *Writer {
	return &Writer{Array: arr}
}

func NewReader(arr *Array) *Reader {
	return &Reader{Array: arr}
}

func lowBits(v uint, n int) uint {
	return v & (uint(1)<<uint(n) - 1)
}

// Write appends the lowest n bits of v.
func (a *Writer) Write(n int, v uint) {
	for n > 0 {
		if a.bitOffset == 0 {
			a.Bytes = append(a.Bytes, 0)
		}
		free := 8 - a.bitOffset
		chunk := n
		if chunk > free {
			chunk = free
		}
		a.Bytes[len(a.Bytes)-1] |= byte(lowBits(v, chunk) << uint(a.bitOffset))
		a.bitOffset = (a.bitOffset + chunk) % 8
		v >>= uint(chunk)
		n -= chunk
	}
}

// Read consumes n bits.
func (a *Reader) Read(n int) (v uint) {
	shift := 0
	for n > 0 {
		free := 8 - a.bitOffset
		chunk := n
		if chunk > free {
			chunk = free
		}
		cur := uint(a.Bytes[a.byteOffset]) >> uint(a.bitOffset)
		v |= lowBits(cur, chunk) << uint(shift)
		a.bitOffset += chunk
		if a.bitOffset == 8 {
			a.bitOffset = 0
			a.byteOffset++
		}
		shift += chunk
		n -= chunk
	}
	return v
}

// View returns the next n bits without consuming them.
func (a *Reader) View(n int) uint {
	cp := *a
	return cp.Read(n)
}

// NonReadBytes counts bytes not fully consumed, including a partially read one.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
