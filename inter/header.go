package inter

import (
	"crypto/ecdsa"
	"errors"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

var (
	ErrNoSlotClaim = errors.New("header has no slot claim")
	ErrNoSeal      = errors.New("header is not sealed")
)

// Header commits to the parent, the extrinsics and the post-state of a block.
type Header struct {
	ParentHash     hash.Hash
	Number         idx.Block
	StateRoot      hash.Hash
	ExtrinsicsRoot hash.Hash
	Digest         Digest
}

func (h *Header) Copy() Header {
	cp := *h
	cp.Digest = h.Digest.Copy()
	return cp
}

// Hash is the block hash.
func (h *Header) Hash() hash.Hash {
	raw, err := h.MarshalBinary()
	if err != nil {
		panic("can't hash header: " + err.Error())
	}
	return Blake2b256(raw)
}

// PreSealHash is the hash the block author signs: the header without its seal.
func (h *Header) PreSealHash() hash.Hash {
	unsealed := *h
	unsealed.Digest = h.Digest.WithoutSeal()
	return unsealed.Hash()
}

// SlotClaim decodes the pre-runtime slot claim.
func (h *Header) SlotClaim() (SlotClaim, error) {
	data, ok := h.Digest.Find(DigestPreRuntime, BabeEngine)
	if !ok {
		return SlotClaim{}, ErrNoSlotClaim
	}
	var c SlotClaim
	if err := rlp.DecodeBytes(data, &c); err != nil {
		return SlotClaim{}, err
	}
	return c, nil
}

// Seal appends the author's signature over PreSealHash.
func (h *Header) Seal(key *ecdsa.PrivateKey) error {
	h.Digest = h.Digest.WithoutSeal()
	sig, err := crypto.Sign(h.PreSealHash().Bytes(), key)
	if err != nil {
		return err
	}
	h.Digest = append(h.Digest, DigestItem{Kind: DigestSeal, Engine: BabeEngine, Data: sig})
	return nil
}

// VerifySeal checks the seal against the author's public key.
func (h *Header) VerifySeal(author validatorpk.PubKey) error {
	seal, ok := h.Digest.Seal()
	if !ok {
		return ErrNoSeal
	}
	if !author.Verify(h.PreSealHash().Bytes(), seal.Data) {
		return ErrBadSignature
	}
	return nil
}
