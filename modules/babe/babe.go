// Package babe tracks slots and epochs of block production and accepts
// reports of authorities producing two blocks for one slot.
package babe

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/modules/historical"
	"github.com/rony4d/go-opera-runtime/modules/offences"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 5
	Name  = "Babe"
)

const InitializeWeight inter.Weight = 2000

var (
	ErrSlotNotIncreasing = errors.New("slot does not increase")
	ErrBadAuthority      = errors.New("slot claimed by unknown authority")
)

var (
	genesisRandomnessKey = []byte("gr")
	genesisSlotKey       = []byte("gs")
	currentSlotKey       = []byte("cs")
	currentEpochKey      = []byte("ce")
	nextEpochKey         = []byte("ne")
	accumulatorKey       = []byte("a")
)

// Configuration is what the host needs to start block production.
type Configuration struct {
	SlotDuration   inter.Timestamp
	EpochLength    uint64
	C              [2]uint64
	Authorities    []iblockproc.EpochAuthority
	Randomness     hash.Hash
	SecondarySlots bool
}

type Module struct {
	registry.Base
	system     *system.Module
	historical *historical.Module
	offences   *offences.Module
}

func New(sys *system.Module, hist *historical.Module, off *offences.Module) *Module {
	return &Module{
		Base:       registry.Base{Idx: Index, ModuleName: Name},
		system:     sys,
		historical: hist,
		offences:   off,
	}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage | registry.ValidateUnsigned
}

func (m *Module) getSlot(ctx *registry.Context, key []byte) (uint64, bool) {
	raw := m.Table(ctx).GetBytes(key)
	if raw == nil {
		return 0, false
	}
	return bigendian.BytesToUint64(raw), true
}

// CurrentSlot is the slot of the current block.
func (m *Module) CurrentSlot(ctx *registry.Context) uint64 {
	s, _ := m.getSlot(ctx, currentSlotKey)
	return s
}

// GenesisSlot is the slot of block one, if produced.
func (m *Module) GenesisSlot(ctx *registry.Context) (uint64, bool) {
	return m.getSlot(ctx, genesisSlotKey)
}

func (m *Module) CurrentEpoch(ctx *registry.Context) iblockproc.EpochState {
	var es iblockproc.EpochState
	m.Table(ctx).GetRLP(currentEpochKey, &es)
	return es
}

func (m *Module) NextEpoch(ctx *registry.Context) iblockproc.EpochState {
	var es iblockproc.EpochState
	m.Table(ctx).GetRLP(nextEpochKey, &es)
	return es
}

// CurrentEpochStart is the first slot of the current epoch.
func (m *Module) CurrentEpochStart(ctx *registry.Context) uint64 {
	return m.CurrentEpoch(ctx).StartSlot
}

func (m *Module) setEpochs(ctx *registry.Context, cur, next iblockproc.EpochState) {
	t := m.Table(ctx)
	t.PutRLP(currentEpochKey, &cur)
	t.PutRLP(nextEpochKey, &next)
}

// Configuration returns the genesis block production parameters.
func (m *Module) Configuration(ctx *registry.Context) Configuration {
	cur := m.CurrentEpoch(ctx)
	var randomness hash.Hash
	m.Table(ctx).GetRLP(genesisRandomnessKey, &randomness)
	return Configuration{
		SlotDuration:   ctx.Rules.Epochs.SlotDuration,
		EpochLength:    ctx.Rules.Epochs.EpochDuration,
		C:              ctx.Rules.Epochs.C,
		Authorities:    cur.Authorities,
		Randomness:     randomness,
		SecondarySlots: ctx.Rules.Epochs.SecondarySlots,
	}
}

func epochConfig(ctx *registry.Context) iblockproc.EpochConfig {
	return iblockproc.EpochConfig{C: ctx.Rules.Epochs.C, SecondarySlots: ctx.Rules.Epochs.SecondarySlots}
}

func epochAuthorities(as drivertype.Authorities) []iblockproc.EpochAuthority {
	out := make([]iblockproc.EpochAuthority, 0, len(as))
	for _, a := range as {
		if key, ok := a.Keys.Get(validatorpk.Babe); ok {
			out = append(out, iblockproc.EpochAuthority{Key: key.Copy(), Weight: a.Weight})
		}
	}
	return out
}

// CheckHeader requires a slot claim from a known authority for a slot past the current one.
// A seal, if present, must be made by the claiming authority.
func (m *Module) CheckHeader(ctx *registry.Context, header *inter.Header) error {
	claim, err := header.SlotClaim()
	if err != nil {
		return err
	}
	if _, started := m.GenesisSlot(ctx); started && claim.Slot <= m.CurrentSlot(ctx) {
		return fmt.Errorf("%w: %d after %d", ErrSlotNotIncreasing, claim.Slot, m.CurrentSlot(ctx))
	}
	epoch := m.CurrentEpoch(ctx)
	if _, started := m.GenesisSlot(ctx); started && claim.Slot >= epoch.EndSlot() {
		epoch = m.NextEpoch(ctx)
	}
	author, ok := epoch.Authority(claim.AuthorityIndex)
	if !ok {
		return fmt.Errorf("%w: %d", ErrBadAuthority, claim.AuthorityIndex)
	}
	if _, sealed := header.Digest.Seal(); sealed {
		return header.VerifySeal(author.Key)
	}
	return nil
}

// OnInitialize records the slot of the block and mixes it into the epoch randomness.
func (m *Module) OnInitialize(ctx *registry.Context) inter.Weight {
	claim, err := ctx.Header.SlotClaim()
	if err != nil {
		return 0
	}
	t := m.Table(ctx)
	if _, started := m.GenesisSlot(ctx); !started {
		t.PutBytes(genesisSlotKey, bigendian.Uint64ToBytes(claim.Slot))
		cur, next := m.CurrentEpoch(ctx), m.NextEpoch(ctx)
		cur.StartSlot = claim.Slot
		next.StartSlot = cur.EndSlot()
		m.setEpochs(ctx, cur, next)
	}
	t.PutBytes(currentSlotKey, bigendian.Uint64ToBytes(claim.Slot))

	raw, _ := rlp.EncodeToBytes(&claim)
	acc := inter.Blake2b256(t.GetBytes(accumulatorKey), raw, ctx.Header.ParentHash.Bytes())
	t.PutBytes(accumulatorKey, acc.Bytes())
	return InitializeWeight
}

// ShouldEndSession reports whether the current slot is past the current epoch.
func (m *Module) ShouldEndSession(ctx *registry.Context) bool {
	if _, started := m.GenesisSlot(ctx); !started {
		return false
	}
	return m.CurrentSlot(ctx) >= m.CurrentEpoch(ctx).EndSlot()
}

func (m *Module) OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities) {
	var randomness hash.Hash
	m.Table(ctx).GetRLP(genesisRandomnessKey, &randomness)
	duration := ctx.Rules.Epochs.EpochDuration
	authorities := epochAuthorities(validators)
	cur := iblockproc.EpochState{
		Epoch:       0,
		Duration:    duration,
		Authorities: authorities,
		Randomness:  randomness,
		Config:      epochConfig(ctx),
	}
	next := cur.Copy()
	next.Epoch = 1
	next.StartSlot = cur.EndSlot()
	m.setEpochs(ctx, cur, next)
}

// OnNewSession enacts the next epoch and announces the one after it.
func (m *Module) OnNewSession(ctx *registry.Context, _ idx.Epoch, _ bool, _, queued drivertype.Authorities) {
	cur := m.NextEpoch(ctx)
	acc := m.Table(ctx).GetBytes(accumulatorKey)
	next := iblockproc.EpochState{
		Epoch:       cur.Epoch + 1,
		StartSlot:   cur.EndSlot(),
		Duration:    ctx.Rules.Epochs.EpochDuration,
		Authorities: epochAuthorities(queued),
		Randomness:  inter.Blake2b256(acc, (cur.Epoch + 1).Bytes()),
		Config:      epochConfig(ctx),
	}
	m.setEpochs(ctx, cur, next)

	desc := inter.NextEpochDescriptor{Randomness: [32]byte(next.Randomness)}
	for _, a := range next.Authorities {
		desc.Authorities = append(desc.Authorities, a.Key.Bytes())
	}
	m.system.DepositLog(ctx, desc.DigestItem())
	ctx.Log.WithField("epoch", cur.Epoch).WithField("start", cur.StartSlot).Info("New epoch")
}

func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	m.Table(ctx).PutRLP(genesisRandomnessKey, g.Randomness)
	return nil
}

// EpochOf returns the index of the epoch containing slot.
func (m *Module) EpochOf(ctx *registry.Context, slot uint64) (idx.Epoch, bool) {
	genesisSlot, ok := m.GenesisSlot(ctx)
	duration := ctx.Rules.Epochs.EpochDuration
	if !ok || slot < genesisSlot || duration == 0 {
		return 0, false
	}
	return idx.Epoch((slot - genesisSlot) / duration), true
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls: []registry.CallMetadata{
			{Index: CallReportEquivocation, Name: "report_equivocation_unsigned", Args: []string{"proof", "key_owner_proof"}},
		},
		Storage: []string{"GenesisSlot", "CurrentSlot", "EpochIndex", "NextEpoch", "Randomness", "GenesisRandomness"},
		Errors:  []string{"InvalidEquivocationProof", "InvalidKeyOwnershipProof", "DuplicateOffenceReport"},
	}
}
