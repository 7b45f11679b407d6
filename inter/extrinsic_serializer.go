package inter

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-opera-runtime/utils/cser"
)

// ExtrinsicVersion is the only supported extrinsic encoding version.
const ExtrinsicVersion = 4

// MaxCallArgsSize bounds decoded call arguments.
const MaxCallArgsSize = cser.MaxAlloc

var ErrUnknownExtrinsicVersion = errors.New("unknown extrinsic version")

func marshalCall(w *cser.Writer, c Call) {
	w.U8(c.Module)
	w.U8(c.Function)
	w.SliceBytes(c.Args)
}

func unmarshalCall(r *cser.Reader) Call {
	var c Call
	c.Module = r.U8()
	c.Function = r.U8()
	c.Args = r.SliceBytes(MaxCallArgsSize)
	if len(c.Args) == 0 {
		c.Args = nil
	}
	return c
}

func marshalExtra(w *cser.Writer, e SignedExtra) {
	w.U32(e.SpecVersion)
	w.U32(e.TxVersion)
	w.FixedBytes(e.Genesis.Bytes())
	w.U64(uint64(e.Era.Birth))
	w.U64(e.Era.Period)
	w.U64(e.Nonce)
	w.BigInt(e.Tip)
}

func unmarshalExtra(r *cser.Reader) SignedExtra {
	var e SignedExtra
	e.SpecVersion = r.U32()
	e.TxVersion = r.U32()
	r.FixedBytes(e.Genesis[:])
	e.Era.Birth = idx.Block(r.U64())
	e.Era.Period = r.U64()
	e.Nonce = r.U64()
	e.Tip = r.BigInt()
	return e
}

// MarshalCSER writes the version byte, the signed flag, the optional signature and the call.
func (xt *Extrinsic) MarshalCSER(w *cser.Writer) error {
	w.U8(ExtrinsicVersion)
	w.Bool(xt.Signature != nil)
	if xt.Signature != nil {
		w.FixedBytes(xt.Signature.Signer.Bytes())
		w.FixedBytes(xt.Signature.Sig[:])
		marshalExtra(w, xt.Signature.Extra)
	}
	marshalCall(w, xt.Call)
	return nil
}

func (xt *Extrinsic) UnmarshalCSER(r *cser.Reader) error {
	if v := r.U8(); v != ExtrinsicVersion {
		return ErrUnknownExtrinsicVersion
	}
	xt.Signature = nil
	if r.Bool() {
		sig := &ExtrinsicSignature{}
		r.FixedBytes(sig.Signer[:])
		r.FixedBytes(sig.Sig[:])
		sig.Extra = unmarshalExtra(r)
		xt.Signature = sig
	}
	xt.Call = unmarshalCall(r)
	return nil
}

func (xt *Extrinsic) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(xt.MarshalCSER)
}

func (xt *Extrinsic) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, xt.UnmarshalCSER)
}

// DecodeExtrinsic is a convenience wrapper around UnmarshalBinary.
func DecodeExtrinsic(raw []byte) (*Extrinsic, error) {
	xt := &Extrinsic{}
	if err := xt.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return xt, nil
}
