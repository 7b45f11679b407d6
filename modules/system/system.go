// Package system keeps the chain bookkeeping every other module relies on:
// accounts and nonces, recent block hashes, the per-block accounting, the
// deposited events and the runtime part of the header digest.
package system

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 0
	Name  = "System"
)

// storage keys
const (
	accountPrefix   = 'a'
	blockHashPrefix = 'h'
	eventPrefix     = 'e'
)

var (
	genesisKey    = []byte("g")
	numberKey     = []byte("n")
	parentKey     = []byte("p")
	blockStateKey = []byte("s")
	phaseKey      = []byte("f")
	eventCountKey = []byte("c")
	digestKey     = []byte("d")
)

// AccountInfo is the state of an account.
type AccountInfo struct {
	Nonce uint64
	Free  *big.Int
}

// Module is the system module.
type Module struct {
	registry.Base
}

func New() *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage
}

func accountKey(addr common.Address) []byte {
	return append([]byte{accountPrefix}, addr.Bytes()...)
}

func blockHashKey(n idx.Block) []byte {
	return append([]byte{blockHashPrefix}, n.Bytes()...)
}

// Account returns the account info, zero for unknown accounts.
func (m *Module) Account(ctx *registry.Context, addr common.Address) AccountInfo {
	var info AccountInfo
	if !m.Table(ctx).GetRLP(accountKey(addr), &info) {
		return AccountInfo{Free: new(big.Int)}
	}
	if info.Free == nil {
		info.Free = new(big.Int)
	}
	return info
}

// SetAccount stores info. An account with no nonce and no balance is removed.
func (m *Module) SetAccount(ctx *registry.Context, addr common.Address, info AccountInfo) {
	if info.Free == nil {
		info.Free = new(big.Int)
	}
	if info.Nonce == 0 && info.Free.Sign() == 0 {
		m.Table(ctx).Remove(accountKey(addr))
		return
	}
	m.Table(ctx).PutRLP(accountKey(addr), &info)
}

func (m *Module) AccountNonce(ctx *registry.Context, addr common.Address) uint64 {
	return m.Account(ctx, addr).Nonce
}

func (m *Module) IncAccountNonce(ctx *registry.Context, addr common.Address) {
	info := m.Account(ctx, addr)
	info.Nonce++
	m.SetAccount(ctx, addr, info)
}

// GenesisHash identifies the chain.
func (m *Module) GenesisHash(ctx *registry.Context) hash.Hash {
	return hash.BytesToHash(m.Table(ctx).GetBytes(genesisKey))
}

// BlockHash returns the hash of one of the recent blocks.
func (m *Module) BlockHash(ctx *registry.Context, n idx.Block) (hash.Hash, bool) {
	raw := m.Table(ctx).GetBytes(blockHashKey(n))
	if raw == nil {
		return hash.Zero, false
	}
	return hash.BytesToHash(raw), true
}

// Number is the number of the block being executed, or of the last executed block between blocks.
func (m *Module) Number(ctx *registry.Context) idx.Block {
	return idx.BytesToBlock(m.Table(ctx).GetBytes(numberKey))
}

func (m *Module) ParentHash(ctx *registry.Context) hash.Hash {
	return hash.BytesToHash(m.Table(ctx).GetBytes(parentKey))
}

func (m *Module) BlockState(ctx *registry.Context) iblockproc.BlockState {
	var bs iblockproc.BlockState
	m.Table(ctx).GetRLP(blockStateKey, &bs)
	return bs
}

func (m *Module) SetBlockState(ctx *registry.Context, bs iblockproc.BlockState) {
	m.Table(ctx).PutRLP(blockStateKey, &bs)
}

// RegisterWeight accounts weight consumed outside of extrinsics, e.g. by hooks.
func (m *Module) RegisterWeight(ctx *registry.Context, w inter.Weight, class inter.DispatchClass) {
	bs := m.BlockState(ctx)
	bs.Weight.Add(class, w)
	m.SetBlockState(ctx, bs)
}

// Initialize starts block header.Number. It clears the per-block storage,
// remembers the parent hash and keeps the pre-runtime digest items of the header.
func (m *Module) Initialize(ctx *registry.Context, header *inter.Header) {
	t := m.Table(ctx)
	t.Clear([]byte{eventPrefix})
	t.Remove(eventCountKey)

	if header.Number > 0 {
		parent := header.Number - 1
		t.PutBytes(blockHashKey(parent), header.ParentHash.Bytes())
		if count := ctx.Rules.Blocks.BlockHashCount; parent >= count {
			t.Remove(blockHashKey(parent - count))
		}
	}
	t.PutBytes(numberKey, header.Number.Bytes())
	t.PutBytes(parentKey, header.ParentHash.Bytes())

	var digest inter.Digest
	for _, it := range header.Digest {
		if it.Kind == inter.DigestPreRuntime {
			digest = append(digest, it)
		}
	}
	m.setDigest(ctx, digest)
	m.SetBlockState(ctx, iblockproc.BlockState{Number: header.Number, ParentHash: header.ParentHash})
	m.SetPhase(ctx, Phase{Kind: Initialization})
}

// Finalize returns the header fields owned by the system module.
func (m *Module) Finalize(ctx *registry.Context) (idx.Block, hash.Hash, inter.Digest) {
	m.SetPhase(ctx, Phase{Kind: Finalization})
	return m.Number(ctx), m.ParentHash(ctx), m.Digest(ctx)
}

// Digest is the digest of the block being built.
func (m *Module) Digest(ctx *registry.Context) inter.Digest {
	var d inter.Digest
	m.Table(ctx).GetRLP(digestKey, &d)
	return d
}

func (m *Module) setDigest(ctx *registry.Context, d inter.Digest) {
	if len(d) == 0 {
		m.Table(ctx).Remove(digestKey)
		return
	}
	m.Table(ctx).PutRLP(digestKey, d)
}

// DepositLog appends an item to the digest of the block being built.
func (m *Module) DepositLog(ctx *registry.Context, item inter.DigestItem) {
	m.setDigest(ctx, append(m.Digest(ctx), item))
}

// NoteApplied records the outcome of an included extrinsic.
func (m *Module) NoteApplied(ctx *registry.Context, info registry.DispatchInfo, derr *registry.DispatchError) {
	if derr != nil {
		ctx.Emit(m.Event("ExtrinsicFailed", &ExtrinsicFailed{
			Kind:  uint8(derr.Kind),
			Index: derr.Index,
			Code:  derr.Code,
			Info:  info,
		}))
	} else {
		ctx.Emit(m.Event("ExtrinsicSuccess", &info))
	}
	bs := m.BlockState(ctx)
	bs.Extrinsics++
	if derr != nil {
		bs.Failed++
	}
	m.SetBlockState(ctx, bs)
}

// BuildGenesis stores the chain identity.
func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	t := m.Table(ctx)
	t.PutBytes(genesisKey, g.Hash().Bytes())
	t.PutBytes(numberKey, idx.Block(0).Bytes())
	return nil
}

func eventKey(i uint32) []byte {
	return append([]byte{eventPrefix}, bigendian.Uint32ToBytes(i)...)
}
