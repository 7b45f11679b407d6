package fast

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	require := require.New(t)

	const n = 100
	tail := []byte{0, 0, 0xff, 9, 0}

	w := NewWriter(make([]byte, 0, n/2))
	for i := byte(0); i < n; i++ {
		w.WriteByte(i)
	}
	require.Equal(n, w.Len())
	w.Write(tail)
	require.Equal(n+len(tail), w.Len())

	r := NewReader(w.Bytes())
	require.False(r.Empty())
	require.Equal(n+len(tail), r.Remaining())
	for exp := byte(0); exp < n; exp++ {
		require.Equal(exp, r.ReadByte())
	}
	require.Equal(n, r.Position())
	require.Equal(tail, r.Read(len(tail)))
	require.True(r.Empty())
	require.Equal(0, r.Remaining())
}

func TestReaderBounds(t *testing.T) {
	require := require.New(t)

	r := NewReader(nil)
	require.True(r.Empty())
	require.Panics(func() { r.ReadByte() })

	r = NewReader([]byte{1, 2, 3})
	require.Equal([]byte{1, 2}, r.Read(2))
	require.Panics(func() { r.Read(2) })

	spare := make([]byte, 3, 8)
	r = NewReader(spare)
	require.Len(r.Read(3), 3)
	require.Panics(func() { r.Read(1) })
	require.Equal(3, r.Position())

	w := NewWriter(nil)
	w.WriteByte(0xaa)
	require.Equal([]byte{0xaa}, w.Bytes())
}

func BenchmarkWrite(b *testing.B) {
	b.Run("std", func(b *testing.B) {
		w := bytes.NewBuffer(make([]byte, 0, b.N))
		for i := 0; i < b.N; i++ {
			_ = w.WriteByte(byte(i))
		}
	})
	b.Run("fast", func(b *testing.B) {
		w := NewWriter(make([]byte, 0, b.N))
		for i := 0; i < b.N; i++ {
			w.WriteByte(byte(i))
		}
	})
}

func BenchmarkRead(b *testing.B) {
	src := make([]byte, 1000)
	_, _ = rand.Read(src)
	b.Run("std", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			r := bytes.NewReader(src)
			for j := 0; j < len(src); j++ {
				_, _ = r.ReadByte()
			}
		}
	})
	b.Run("fast", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			r := NewReader(src)
			for j := 0; j < len(src); j++ {
				_ = r.ReadByte()
			}
		}
	})
}
