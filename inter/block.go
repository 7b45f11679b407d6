package inter

import (
	"bytes"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/rony4d/go-opera-runtime/utils/cser"
)

// MaxBlockExtrinsics bounds decoded blocks.
const MaxBlockExtrinsics = 1 << 16

// Extrinsics is an ordered extrinsic list. Order is consensus-critical.
type Extrinsics []*Extrinsic

func (xs Extrinsics) Len() int {
	return len(xs)
}

// EncodeIndex writes the canonical encoding of the i-th extrinsic.
func (xs Extrinsics) EncodeIndex(i int, w *bytes.Buffer) {
	raw, err := xs[i].MarshalBinary()
	if err != nil {
		panic(err)
	}
	w.Write(raw)
}

// ExtrinsicsRoot is the ordered trie root over the extrinsic encodings.
func ExtrinsicsRoot(xs Extrinsics) hash.Hash {
	if len(xs) == 0 {
		return hash.Hash(types.EmptyRootHash)
	}
	return hash.Hash(types.DeriveSha(xs, trie.NewStackTrie(nil)))
}

type Block struct {
	Header     Header
	Extrinsics Extrinsics
}

func (b *Block) Hash() hash.Hash {
	return b.Header.Hash()
}

func (b *Block) MarshalCSER(w *cser.Writer) error {
	if err := b.Header.MarshalCSER(w); err != nil {
		return err
	}
	w.U32(uint32(len(b.Extrinsics)))
	for _, xt := range b.Extrinsics {
		raw, err := xt.MarshalBinary()
		if err != nil {
			return err
		}
		w.SliceBytes(raw)
	}
	return nil
}

func (b *Block) UnmarshalCSER(r *cser.Reader) error {
	if err := b.Header.UnmarshalCSER(r); err != nil {
		return err
	}
	n := r.U32()
	if n > MaxBlockExtrinsics {
		return cser.ErrTooLargeAlloc
	}
	b.Extrinsics = nil
	if n != 0 {
		b.Extrinsics = make(Extrinsics, n)
	}
	for i := range b.Extrinsics {
		xt, err := DecodeExtrinsic(r.SliceBytes(cser.MaxAlloc + 1024))
		if err != nil {
			return err
		}
		b.Extrinsics[i] = xt
	}
	return nil
}

func (b *Block) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(b.MarshalCSER)
}

func (b *Block) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, b.UnmarshalCSER)
}
