package inter

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-runtime/utils/cser"
)

var (
	ErrBadSignature = errors.New("extrinsic signature does not match signer")
	ErrUnsigned     = errors.New("extrinsic is not signed")
)

// SignedExtra is the ordered tuple of checks attached to every signed extrinsic.
// Field order matches the order in which the validation chain evaluates them.
type SignedExtra struct {
	SpecVersion uint32
	TxVersion   uint32
	Genesis     hash.Hash
	Era         Era
	Nonce       uint64
	Tip         *big.Int
}

type ExtrinsicSignature struct {
	Signer common.Address
	Sig    [crypto.SignatureLength]byte
	Extra  SignedExtra
}

// Extrinsic is an externally submitted or block-author-inserted piece of data.
// Unsigned extrinsics are either inherents or calls a module validates itself.
type Extrinsic struct {
	Signature *ExtrinsicSignature
	Call      Call
}

func NewUnsigned(call Call) *Extrinsic {
	return &Extrinsic{Call: call}
}

// SignExtrinsic produces a signed extrinsic on behalf of key.
func SignExtrinsic(call Call, extra SignedExtra, key *ecdsa.PrivateKey) (*Extrinsic, error) {
	if extra.Tip == nil {
		extra.Tip = new(big.Int)
	}
	digest, err := SigningPayload(call, extra)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, err
	}
	xt := &Extrinsic{
		Signature: &ExtrinsicSignature{
			Signer: crypto.PubkeyToAddress(key.PublicKey),
			Extra:  extra,
		},
		Call: call,
	}
	copy(xt.Signature.Sig[:], sig)
	return xt, nil
}

// SigningPayload is the digest covered by an extrinsic signature.
func SigningPayload(call Call, extra SignedExtra) (hash.Hash, error) {
	raw, err := cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		marshalCall(w, call)
		marshalExtra(w, extra)
		return nil
	})
	if err != nil {
		return hash.Zero, err
	}
	return Blake2b256(raw), nil
}

func (xt *Extrinsic) IsSigned() bool {
	return xt.Signature != nil
}

// Signer returns the declared sender. Zero for unsigned extrinsics.
func (xt *Extrinsic) Signer() common.Address {
	if xt.Signature == nil {
		return common.Address{}
	}
	return xt.Signature.Signer
}

// Extra returns the signed extension tuple. Zero for unsigned extrinsics.
func (xt *Extrinsic) Extra() SignedExtra {
	if xt.Signature == nil {
		return SignedExtra{}
	}
	return xt.Signature.Extra
}

// VerifySignature recovers the signing key and compares it with the declared signer.
func (xt *Extrinsic) VerifySignature() error {
	if xt.Signature == nil {
		return ErrUnsigned
	}
	digest, err := SigningPayload(xt.Call, xt.Signature.Extra)
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(digest.Bytes(), xt.Signature.Sig[:])
	if err != nil {
		return ErrBadSignature
	}
	if crypto.PubkeyToAddress(*pub) != xt.Signature.Signer {
		return ErrBadSignature
	}
	return nil
}

// Hash identifies the extrinsic by its canonical encoding.
func (xt *Extrinsic) Hash() hash.Hash {
	raw, err := xt.MarshalBinary()
	if err != nil {
		return hash.Zero
	}
	return Blake2b256(raw)
}

// Size is the length of the canonical encoding in bytes.
func (xt *Extrinsic) Size() uint64 {
	raw, err := xt.MarshalBinary()
	if err != nil {
		return 0
	}
	return uint64(len(raw))
}
