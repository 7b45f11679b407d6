package inter

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

var (
	ErrMalformedProof  = errors.New("malformed equivocation proof")
	ErrNotEquivocation = errors.New("evidence does not show equivocation")
)

// SlotEquivocation proves that an authority sealed two different headers for one slot.
type SlotEquivocation struct {
	Offender validatorpk.PubKey
	Slot     uint64
	First    Header
	Second   Header
}

// Vote is a finality vote for a block.
type Vote struct {
	TargetHash   hash.Hash
	TargetNumber idx.Block
}

type SignedVote struct {
	Vote Vote
	Sig  []byte
}

// VoteEquivocation proves that an authority cast two different votes in one round.
type VoteEquivocation struct {
	SetID    uint64
	Round    uint64
	Offender validatorpk.PubKey
	First    SignedVote
	Second   SignedVote
}

// VotePayload is the digest a finality voter signs.
func VotePayload(v Vote, round, setID uint64) hash.Hash {
	raw, _ := rlp.EncodeToBytes([]interface{}{v.TargetHash, uint64(v.TargetNumber), round, setID})
	return Blake2b256(raw)
}

// EquivocationProof holds exactly one kind of evidence.
type EquivocationProof struct {
	Slot *SlotEquivocation `rlp:"nil"`
	Vote *VoteEquivocation `rlp:"nil"`
}

func (p EquivocationProof) Offender() validatorpk.PubKey {
	if p.Slot != nil {
		return p.Slot.Offender
	}
	if p.Vote != nil {
		return p.Vote.Offender
	}
	return validatorpk.PubKey{}
}

// Encode is the RLP form submitted over the runtime API.
func (p EquivocationProof) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

// DecodeEquivocationProof rejects blobs which do not carry exactly one kind of evidence.
func DecodeEquivocationProof(b []byte) (EquivocationProof, error) {
	var p EquivocationProof
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return EquivocationProof{}, err
	}
	if (p.Slot == nil) == (p.Vote == nil) {
		return EquivocationProof{}, ErrMalformedProof
	}
	return p, nil
}

// Check verifies the headers claim the same slot, differ, and carry the offender's seal.
func (e *SlotEquivocation) Check() error {
	if e.First.Hash() == e.Second.Hash() {
		return ErrNotEquivocation
	}
	for _, h := range []*Header{&e.First, &e.Second} {
		claim, err := h.SlotClaim()
		if err != nil {
			return err
		}
		if claim.Slot != e.Slot {
			return ErrNotEquivocation
		}
		if err := h.VerifySeal(e.Offender); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies the two votes differ and are both signed by the offender.
func (e *VoteEquivocation) Check() error {
	if e.First.Vote == e.Second.Vote {
		return ErrNotEquivocation
	}
	for _, sv := range []SignedVote{e.First, e.Second} {
		if !e.Offender.Verify(VotePayload(sv.Vote, e.Round, e.SetID).Bytes(), sv.Sig) {
			return ErrBadSignature
		}
	}
	return nil
}
