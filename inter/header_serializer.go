package inter

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-opera-runtime/utils/cser"
)

// MaxDigestItems bounds decoded digests.
const MaxDigestItems = 64

// MaxDigestItemSize bounds a single decoded digest entry.
const MaxDigestItemSize = 16 * 1024

func (h *Header) MarshalCSER(w *cser.Writer) error {
	w.FixedBytes(h.ParentHash.Bytes())
	w.U64(uint64(h.Number))
	w.FixedBytes(h.StateRoot.Bytes())
	w.FixedBytes(h.ExtrinsicsRoot.Bytes())
	w.U32(uint32(len(h.Digest)))
	for _, it := range h.Digest {
		w.U8(uint8(it.Kind))
		w.FixedBytes(it.Engine[:])
		w.SliceBytes(it.Data)
	}
	return nil
}

func (h *Header) UnmarshalCSER(r *cser.Reader) error {
	r.FixedBytes(h.ParentHash[:])
	h.Number = idx.Block(r.U64())
	r.FixedBytes(h.StateRoot[:])
	r.FixedBytes(h.ExtrinsicsRoot[:])
	n := r.U32()
	if n > MaxDigestItems {
		return cser.ErrTooLargeAlloc
	}
	h.Digest = nil
	if n != 0 {
		h.Digest = make(Digest, n)
	}
	for i := range h.Digest {
		it := &h.Digest[i]
		it.Kind = DigestKind(r.U8())
		r.FixedBytes(it.Engine[:])
		it.Data = r.SliceBytes(MaxDigestItemSize)
	}
	return nil
}

func (h *Header) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(h.MarshalCSER)
}

func (h *Header) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, h.UnmarshalCSER)
}
