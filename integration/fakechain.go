package integration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-opera-runtime/api"
	"github.com/rony4d/go-opera-runtime/executive"
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/modules/timestamp"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/state"
)

var ErrNoAuthor = errors.New("no fake validator owns the slot")

// MemPool collects submitted extrinsics until the next block is built.
type MemPool struct {
	mu  sync.Mutex
	txs []*inter.Extrinsic
}

func (p *MemPool) SubmitExtrinsic(xt *inter.Extrinsic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, xt)
	return nil
}

// Pending lists the submitted extrinsics without removing them.
func (p *MemPool) Pending() []*inter.Extrinsic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*inter.Extrinsic(nil), p.txs...)
}

// Drain removes and returns the submitted extrinsics.
func (p *MemPool) Drain() []*inter.Extrinsic {
	p.mu.Lock()
	defer p.mu.Unlock()
	txs := p.txs
	p.txs = nil
	return txs
}

// FakeChain authors blocks of a fake network in consecutive slots, round robin
// over the epoch authorities. Every validator's session keys are in Keystore.
type FakeChain struct {
	*api.Runtime
	Genesis    genesis.Genesis
	Validators []genesis.FakeValidator
	Keystore   *api.MemKeystore
	Pool       *MemPool

	slot uint64
}

// NewFakeChain applies the preset's fake genesis to a fresh in-memory backend.
func NewFakeChain(preset PresetConfig, host Host) (*FakeChain, error) {
	g, validators := preset.Genesis()
	ks := api.NewMemKeystore()
	for _, v := range validators {
		for kt, key := range v.Session {
			ks.Insert(kt, key)
		}
	}
	pool := &MemPool{}
	if host.Keystore == nil {
		host.Keystore = ks
	}
	if host.Pool == nil {
		host.Pool = pool
	}
	rt, err := MakeRuntime(preset.Rules, state.NewMemory(), host)
	if err != nil {
		return nil, err
	}
	if _, err := rt.ApplyGenesis(&g); err != nil {
		return nil, err
	}
	return &FakeChain{
		Runtime:    rt,
		Genesis:    g,
		Validators: validators,
		Keystore:   ks,
		Pool:       pool,
		slot:       uint64(g.Time / preset.Rules.Epochs.SlotDuration),
	}, nil
}

// Slot is the slot of the last authored block.
func (c *FakeChain) Slot() uint64 {
	return c.slot
}

// SkipSlots leaves n slots empty.
func (c *FakeChain) SkipSlots(n uint64) {
	c.slot += n
}

// Time is the block time of slot.
func (c *FakeChain) Time(slot uint64) inter.Timestamp {
	return inter.Timestamp(slot) * c.Rules().Epochs.SlotDuration
}

func (c *FakeChain) author(slot uint64) (uint32, *genesis.FakeValidator, error) {
	epoch, err := c.CurrentEpoch()
	if err != nil {
		return 0, nil, err
	}
	if c.Head().Number > 0 && slot >= epoch.EndSlot() {
		if epoch, err = c.NextEpoch(); err != nil {
			return 0, nil, err
		}
	}
	if len(epoch.Authorities) == 0 {
		return 0, nil, ErrNoAuthor
	}
	i := uint32(slot % uint64(len(epoch.Authorities)))
	for n := range c.Validators {
		v := &c.Validators[n]
		if validatorpk.FromECDSA(&v.Session[validatorpk.Babe].PublicKey).Equal(epoch.Authorities[i].Key) {
			return i, v, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: %d", ErrNoAuthor, slot)
}

// Header is the unsealed header the next block would start from.
func (c *FakeChain) Header() (*inter.Header, *genesis.FakeValidator, error) {
	slot := c.slot + 1
	i, v, err := c.author(slot)
	if err != nil {
		return nil, nil, err
	}
	head := c.Head()
	return &inter.Header{
		ParentHash: head.Hash(),
		Number:     head.Number + 1,
		Digest:     inter.Digest{inter.SlotClaim{AuthorityIndex: i, Slot: slot}.DigestItem()},
	}, v, nil
}

// BuildBlock authors the next block with the inherents and every admissible
// extrinsic of xs. Inadmissible extrinsics are left out.
func (c *FakeChain) BuildBlock(xs ...*inter.Extrinsic) (*inter.Block, []executive.ApplyResult, error) {
	header, author, err := c.Header()
	if err != nil {
		return nil, nil, err
	}
	claim, _ := header.SlotClaim()
	if err := c.InitializeBlock(header); err != nil {
		return nil, nil, err
	}
	inherents, err := c.InherentExtrinsics(timestamp.InherentData(c.Time(claim.Slot)))
	if err != nil {
		return nil, nil, err
	}

	var (
		included []*inter.Extrinsic
		results  []executive.ApplyResult
	)
	for _, xt := range append(inherents, xs...) {
		res, err := c.ApplyExtrinsic(xt)
		if executive.IsFatal(err) {
			return nil, nil, err
		}
		if err != nil {
			continue
		}
		included = append(included, xt)
		results = append(results, res)
	}

	built, err := c.FinalizeBlock()
	if err != nil {
		return nil, nil, err
	}
	if err := built.Seal(author.Session[validatorpk.Babe]); err != nil {
		return nil, nil, err
	}
	if err := c.NoteSeal(built); err != nil {
		return nil, nil, err
	}
	c.slot = claim.Slot
	return &inter.Block{Header: *built, Extrinsics: included}, results, nil
}

// ProduceBlock builds a block from the pool.
func (c *FakeChain) ProduceBlock() (*inter.Block, error) {
	block, _, err := c.BuildBlock(c.Pool.Drain()...)
	return block, err
}

// Hash of the current head.
func (c *FakeChain) HeadHash() hash.Hash {
	head := c.Head()
	return head.Hash()
}
