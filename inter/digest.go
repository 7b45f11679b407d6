package inter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// DigestKind tags an entry of the header digest.
type DigestKind uint8

const (
	DigestOther DigestKind = iota
	DigestPreRuntime
	DigestConsensus
	DigestSeal
	DigestRuntimeUpdated
)

// EngineID names the consensus engine a digest entry belongs to.
type EngineID [4]byte

var (
	BabeEngine    = EngineID{'B', 'A', 'B', 'E'}
	GrandpaEngine = EngineID{'F', 'R', 'N', 'K'}
)

func (e EngineID) String() string {
	return string(e[:])
}

type DigestItem struct {
	Kind   DigestKind
	Engine EngineID
	Data   []byte
}

// Digest is the ordered list of header log entries.
type Digest []DigestItem

// Find returns the data of the first entry of kind produced by engine.
func (d Digest) Find(kind DigestKind, engine EngineID) ([]byte, bool) {
	for _, it := range d {
		if it.Kind == kind && it.Engine == engine {
			return it.Data, true
		}
	}
	return nil, false
}

// Seal returns the trailing seal entry, if any.
func (d Digest) Seal() (DigestItem, bool) {
	if len(d) == 0 || d[len(d)-1].Kind != DigestSeal {
		return DigestItem{}, false
	}
	return d[len(d)-1], true
}

// WithoutSeal drops a trailing seal entry.
func (d Digest) WithoutSeal() Digest {
	if _, ok := d.Seal(); ok {
		return d[:len(d)-1]
	}
	return d
}

func (d Digest) Copy() Digest {
	if d == nil {
		return nil
	}
	cp := make(Digest, len(d))
	for i, it := range d {
		cp[i] = DigestItem{Kind: it.Kind, Engine: it.Engine, Data: common.CopyBytes(it.Data)}
	}
	return cp
}

// SlotClaim is the pre-runtime entry a block author puts into the header.
type SlotClaim struct {
	AuthorityIndex uint32
	Slot           uint64
}

func (c SlotClaim) DigestItem() DigestItem {
	data, _ := rlp.EncodeToBytes(&c)
	return DigestItem{Kind: DigestPreRuntime, Engine: BabeEngine, Data: data}
}

// NextEpochDescriptor announces the authorities and randomness of the upcoming epoch.
type NextEpochDescriptor struct {
	Authorities [][]byte
	Randomness  [32]byte
}

func (n NextEpochDescriptor) DigestItem() DigestItem {
	data, _ := rlp.EncodeToBytes(&n)
	return DigestItem{Kind: DigestConsensus, Engine: BabeEngine, Data: data}
}
