// Package iblockproc holds the state that block processing carries between blocks and epochs.
package iblockproc

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

// BlockState is the accounting of the block being built. It is reset on initialization.
type BlockState struct {
	Number     idx.Block
	ParentHash hash.Hash
	Slot       uint64

	Weight inter.ClassWeights
	// Length is the total encoded size of the applied extrinsics.
	Length uint64
	// Extrinsics counts included extrinsics; it is the index of the next one.
	Extrinsics uint32
	// Failed counts included extrinsics whose dispatch failed.
	Failed uint32
	// SignedSeen is set once a non-inherent extrinsic is applied; inherents are forbidden after that.
	SignedSeen bool
}

func (bs BlockState) Copy() BlockState {
	return bs
}

// Hash calculates the SHA256 hash of the RLP-encoded BlockState.
func (bs BlockState) Hash() hash.Hash {
	return rlpHash(&bs)
}

// EpochConfig is the slot lottery configuration.
type EpochConfig struct {
	// C is the probability a slot is claimed, as a fraction C[0]/C[1].
	C [2]uint64
	// SecondarySlots allows fallback authors for unclaimed slots.
	SecondarySlots bool
}

type EpochAuthority struct {
	Key    validatorpk.PubKey
	Weight uint64
}

// EpochState is the block production schedule of one epoch.
type EpochState struct {
	Epoch       idx.Epoch
	StartSlot   uint64
	Duration    uint64
	Authorities []EpochAuthority
	Randomness  hash.Hash
	Config      EpochConfig
}

// EndSlot is the first slot past the epoch.
func (es EpochState) EndSlot() uint64 {
	return es.StartSlot + es.Duration
}

// Contains reports whether slot belongs to the epoch.
func (es EpochState) Contains(slot uint64) bool {
	return slot >= es.StartSlot && slot < es.EndSlot()
}

// Validators maps authority positions to validator ids starting from 1.
func (es EpochState) Validators() *pos.Validators {
	b := pos.NewBuilder()
	for i, a := range es.Authorities {
		b.Set(idx.ValidatorID(i+1), pos.Weight(a.Weight))
	}
	return b.Build()
}

// Authority returns the i-th authority.
func (es EpochState) Authority(i uint32) (EpochAuthority, bool) {
	if int(i) >= len(es.Authorities) {
		return EpochAuthority{}, false
	}
	return es.Authorities[i], true
}

func (es EpochState) Hash() hash.Hash {
	return rlpHash(&es)
}

func (es EpochState) Copy() EpochState {
	cp := es
	if es.Authorities != nil {
		cp.Authorities = make([]EpochAuthority, len(es.Authorities))
		for i, a := range es.Authorities {
			cp.Authorities[i] = EpochAuthority{Key: a.Key.Copy(), Weight: a.Weight}
		}
	}
	return cp
}

func rlpHash(v interface{}) hash.Hash {
	hasher := sha256.New()
	err := rlp.Encode(hasher, v)
	if err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}
