// Package executive drives block execution: it initializes a block, applies
// its extrinsics one by one and finalizes it into a header and a committed state.
//
// Execution is a linear state machine. Every block is built in a single overlay
// which reaches the backend only when the block finalizes successfully; any
// fatal failure discards the overlay and leaves the committed state untouched.
package executive

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
	"github.com/rony4d/go-opera-runtime/utils/logging"
	"github.com/rony4d/go-opera-runtime/validation"
)

// Phase is the state of the block execution state machine.
type Phase uint8

const (
	Idle Phase = iota
	Initializing
	Applying
	Finalizing
	Committed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Applying:
		return "applying"
	case Finalizing:
		return "finalizing"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ApplyResult is the outcome of an included extrinsic.
type ApplyResult struct {
	Included bool
	// Outcome is nil if the dispatch succeeded.
	Outcome *registry.DispatchError
	// Weight is the weight charged to the block.
	Weight inter.Weight
	// Fee is what the signer paid.
	Fee *big.Int
}

// Config of an Executive.
type Config struct {
	Rules opera.Rules
	Log   logrus.FieldLogger
}

// Executive executes blocks against a state backend. It executes one block at a time.
type Executive struct {
	registry  *registry.Registry
	system    *system.Module
	validator *validation.Validator
	backend   *state.Backend
	rules     opera.Rules
	log       logrus.FieldLogger

	mu         sync.Mutex
	phase      Phase
	head       inter.Header
	overlay    *state.Overlay
	header     *inter.Header
	extrinsics inter.Extrinsics
	started    time.Time
}

func New(reg *registry.Registry, sys *system.Module, validator *validation.Validator, backend *state.Backend, cfg Config) *Executive {
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	return &Executive{
		registry:  reg,
		system:    sys,
		validator: validator,
		backend:   backend,
		rules:     cfg.Rules,
		log:       log,
	}
}

// Phase returns the current execution state.
func (e *Executive) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Head is the header of the last committed block.
func (e *Executive) Head() inter.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.head.Copy()
}

// Rules of the executed network.
func (e *Executive) Rules() *opera.Rules {
	return &e.rules
}

func (e *Executive) context(st *state.Overlay, header *inter.Header) *registry.Context {
	log := e.log.WithField("block", header.Number)
	return registry.NewContext(st, header, &e.rules, log, e.system)
}

func (e *Executive) fatal(err error) error {
	var n idx.Block
	if e.header != nil {
		n = e.header.Number
	}
	fe := &FatalError{Block: n, Err: err}
	e.log.WithField("block", n).WithError(err).Error("Block aborted")
	if e.overlay != nil {
		e.overlay.Discard()
	}
	e.overlay = nil
	e.header = nil
	e.extrinsics = nil
	e.phase = Idle
	recordBlock("aborted", e.started, inter.ClassWeights{})
	return fe
}

// guard runs fn and converts a panic raised by a module into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	fn()
	return nil
}

// InitializeBlock starts building a block on top of the head.
func (e *Executive) InitializeBlock(header *inter.Header) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Idle && e.phase != Committed {
		return fmt.Errorf("%w: initialize in %s", ErrInvalidState, e.phase)
	}
	return e.initialize(header)
}

func (e *Executive) initialize(header *inter.Header) error {
	h := header.Copy()
	e.phase = Initializing
	e.header = &h
	e.started = time.Now()
	e.overlay = e.backend.Begin()
	ctx := e.context(e.overlay, e.header)

	if e.system.GenesisHash(ctx) == hash.Zero {
		return e.fatal(ErrNoGenesis)
	}
	if last := e.system.Number(ctx); h.Number != last+1 {
		return e.fatal(fmt.Errorf("%w: %d after %d", ErrUnexpectedNumber, h.Number, last))
	}
	if e.head.Number+1 == h.Number && e.head.StateRoot != hash.Zero && h.ParentHash != e.head.Hash() {
		return e.fatal(fmt.Errorf("%w: %s", ErrUnexpectedParent, h.ParentHash.String()))
	}
	for _, c := range e.registry.HeaderCheckers() {
		if err := c.CheckHeader(ctx, e.header); err != nil {
			return e.fatal(fmt.Errorf("%w: %v", ErrBadHeader, err))
		}
	}

	err := guard(func() {
		e.system.Initialize(ctx, e.header)
		e.system.RegisterWeight(ctx, e.rules.Blocks.BlockExecutionWeight, inter.Mandatory)
		for _, m := range e.registry.Ascending() {
			w := m.OnInitialize(ctx)
			e.system.RegisterWeight(ctx, w, inter.Mandatory)
		}
	})
	if err != nil {
		return e.fatal(err)
	}
	e.extrinsics = nil
	e.phase = Applying
	ctx.Log.Debug("Block initialized")
	return nil
}

// ApplyExtrinsic admits and dispatches one extrinsic into the block.
// An admission failure excludes the extrinsic and is returned as is.
// A failed dispatch still includes it; the failure is in the result.
func (e *Executive) ApplyExtrinsic(xt *inter.Extrinsic) (ApplyResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Applying {
		return ApplyResult{}, fmt.Errorf("%w: apply in %s", ErrInvalidState, e.phase)
	}
	return e.apply(xt)
}

func (e *Executive) apply(xt *inter.Extrinsic) (ApplyResult, error) {
	index := uint32(len(e.extrinsics))
	ctx := e.context(e.overlay, e.header).WithLog(logrus.Fields{"extrinsic": index})

	c, err := e.validator.Check(xt)
	if err != nil {
		if errors.Is(err, registry.ErrUnroutable) {
			return ApplyResult{}, e.fatal(err)
		}
		recordExtrinsic("rejected")
		return ApplyResult{}, err
	}
	if c.Inherent && e.system.BlockState(ctx).SignedSeen {
		return ApplyResult{}, e.fatal(fmt.Errorf("%w: %s", ErrInherentOrder, xt.Call))
	}
	origin := registry.None()
	if xt.IsSigned() {
		origin = registry.Signed(xt.Signer())
	}

	xo := e.overlay.Nested()
	xctx := ctx.WithState(xo)
	var admitErr, dispatchErr error
	err = guard(func() {
		e.system.SetPhase(xctx, system.Phase{Kind: system.ApplyExtrinsic, Extrinsic: index})
		if admitErr = e.validator.PreDispatch(xctx, c); admitErr != nil {
			return
		}
		do := xo.Nested()
		if dispatchErr = e.registry.Dispatch(xctx.WithState(do), origin, xt.Call); dispatchErr != nil {
			do.Discard()
			return
		}
		mustMerge(do)
	})
	if err != nil {
		return ApplyResult{}, e.fatal(err)
	}
	if admitErr != nil {
		// effects of the stages that passed stand
		if err := xo.Merge(); err != nil {
			return ApplyResult{}, e.fatal(err)
		}
		recordExtrinsic("rejected")
		return ApplyResult{}, admitErr
	}
	if dispatchErr != nil && c.Inherent {
		xo.Discard()
		recordExtrinsic("rejected")
		return ApplyResult{}, fmt.Errorf("%w: %v", validity.ErrBadMandatory, dispatchErr)
	}

	outcome := registry.AsDispatchError(dispatchErr)
	err = guard(func() {
		e.system.NoteApplied(xctx, c.Info, outcome)
		if !c.Inherent {
			bs := e.system.BlockState(xctx)
			bs.SignedSeen = true
			e.system.SetBlockState(xctx, bs)
		}
		mustMerge(xo)
	})
	if err != nil {
		return ApplyResult{}, e.fatal(err)
	}
	e.extrinsics = append(e.extrinsics, xt)

	res := ApplyResult{
		Included: true,
		Outcome:  outcome,
		Weight:   c.Info.Weight.SaturatingAdd(e.rules.Blocks.ExtrinsicBaseWeight),
		Fee:      c.Fee,
	}
	if res.Fee == nil {
		res.Fee = new(big.Int)
	}
	if outcome != nil {
		recordExtrinsic("failed")
		ctx.Log.WithError(outcome).Debug("Extrinsic failed")
	} else {
		recordExtrinsic("success")
	}
	return res, nil
}

func mustMerge(o *state.Overlay) {
	if err := o.Merge(); err != nil {
		panic(err)
	}
}

// InherentExtrinsics builds the inherents of the block being built from host data.
func (e *Executive) InherentExtrinsics(data registry.InherentData) ([]*inter.Extrinsic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Applying {
		return nil, fmt.Errorf("%w: inherents in %s", ErrInvalidState, e.phase)
	}
	scratch := e.overlay.Nested()
	defer scratch.Discard()
	ctx := e.context(scratch, e.header)

	var out []*inter.Extrinsic
	for _, p := range e.registry.InherentProviders() {
		calls, err := p.CreateInherents(ctx, data)
		if err != nil {
			return nil, err
		}
		for _, call := range calls {
			out = append(out, inter.NewUnsigned(call))
		}
	}
	return out, nil
}

// FinalizeBlock runs the finalization hooks, commits the block and returns its header.
func (e *Executive) FinalizeBlock() (*inter.Header, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Applying {
		return nil, fmt.Errorf("%w: finalize in %s", ErrInvalidState, e.phase)
	}
	header, weights, err := e.finalize()
	if err != nil {
		return nil, err
	}
	return header, e.commit(header, weights)
}

func (e *Executive) finalize() (*inter.Header, inter.ClassWeights, error) {
	e.phase = Finalizing
	ctx := e.context(e.overlay, e.header)

	var (
		number idx.Block
		parent hash.Hash
		digest inter.Digest
		bs     iblockproc.BlockState
	)
	err := guard(func() {
		for _, m := range e.registry.Descending() {
			m.OnFinalize(ctx)
		}
		bs = e.system.BlockState(ctx)
		number, parent, digest = e.system.Finalize(ctx)
	})
	if err != nil {
		return nil, inter.ClassWeights{}, e.fatal(err)
	}
	if total := bs.Weight.Total(); total > e.rules.Blocks.MaxBlockWeight {
		return nil, inter.ClassWeights{}, e.fatal(fmt.Errorf("%w: %d > %d", ErrWeightOverflow, total, e.rules.Blocks.MaxBlockWeight))
	}

	header := &inter.Header{
		ParentHash:     parent,
		Number:         number,
		ExtrinsicsRoot: inter.ExtrinsicsRoot(e.extrinsics),
		Digest:         digest,
	}
	var root hash.Hash
	if err := guard(func() { root = e.overlay.Root() }); err != nil {
		return nil, inter.ClassWeights{}, e.fatal(err)
	}
	header.StateRoot = root
	return header, bs.Weight, nil
}

func (e *Executive) commit(header *inter.Header, weights inter.ClassWeights) error {
	if err := e.backend.Commit(e.overlay, header.StateRoot); err != nil {
		return e.fatal(err)
	}
	e.log.WithFields(logrus.Fields{
		"block":      header.Number,
		"root":       header.StateRoot.String(),
		"extrinsics": len(e.extrinsics),
		"weight":     weights.Total(),
		"elapsed":    time.Since(e.started),
	}).Info("Block committed")
	recordBlock("committed", e.started, weights)

	e.head = header.Copy()
	e.overlay = nil
	e.header = nil
	e.extrinsics = nil
	e.phase = Committed
	return nil
}

// ExecuteBlock imports a complete block. It fails unless every listed extrinsic
// is admissible and the computed header matches the given one.
func (e *Executive) ExecuteBlock(block *inter.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Idle && e.phase != Committed {
		return fmt.Errorf("%w: execute in %s", ErrInvalidState, e.phase)
	}
	if err := e.initialize(&block.Header); err != nil {
		return err
	}
	for i, xt := range block.Extrinsics {
		if _, err := e.apply(xt); err != nil {
			if IsFatal(err) {
				return err
			}
			return e.fatal(fmt.Errorf("%w: %d: %v", ErrInadmissible, i, err))
		}
	}
	header, weights, err := e.finalize()
	if err != nil {
		return err
	}
	if header.ExtrinsicsRoot != block.Header.ExtrinsicsRoot {
		return e.fatal(fmt.Errorf("%w: computed %s, header %s", ErrExtrinsicsRootMismatch, header.ExtrinsicsRoot.String(), block.Header.ExtrinsicsRoot.String()))
	}
	if header.StateRoot != block.Header.StateRoot {
		return e.fatal(fmt.Errorf("%w: computed %s, header %s", ErrStateRootMismatch, header.StateRoot.String(), block.Header.StateRoot.String()))
	}
	if !sameDigest(header.Digest, block.Header.Digest.WithoutSeal()) {
		return e.fatal(ErrDigestMismatch)
	}
	header.Digest = block.Header.Digest.Copy()
	return e.commit(header, weights)
}

// NoteSeal replaces the head built by FinalizeBlock with its sealed copy,
// so that the next block may name the sealed hash as its parent.
func (e *Executive) NoteSeal(sealed *inter.Header) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Committed {
		return fmt.Errorf("%w: seal in %s", ErrInvalidState, e.phase)
	}
	if _, ok := sealed.Digest.Seal(); !ok {
		return inter.ErrNoSeal
	}
	if sealed.PreSealHash() != e.head.Hash() {
		return fmt.Errorf("%w: sealed header is not the head", ErrBadHeader)
	}
	e.head = sealed.Copy()
	return nil
}

func sameDigest(a, b inter.Digest) bool {
	ra, _ := rlp.EncodeToBytes(a)
	rb, _ := rlp.EncodeToBytes(b)
	return bytes.Equal(ra, rb)
}

// CheckInherents cross-checks the inherents of a block against host data.
// The returned errors are warnings; they do not invalidate the block by themselves.
func (e *Executive) CheckInherents(block *inter.Block, data registry.InherentData) []error {
	var warnings []error
	_ = e.View(func(ctx *registry.Context) error {
		for i, xt := range block.Extrinsics {
			if xt.IsSigned() || !e.registry.IsInherent(xt.Call) {
				continue
			}
			m, _ := e.registry.Get(xt.Call.Module)
			if err := m.(registry.InherentProvider).CheckInherent(ctx, xt.Call, data); err != nil {
				warnings = append(warnings, fmt.Errorf("extrinsic %d: %w", i, err))
			}
		}
		return nil
	})
	return warnings
}

// snapshot pins the committed state together with the head it belongs to.
// Callers read it after e.mu is released.
func (e *Executive) snapshot() (inter.Header, *state.Overlay, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, release := e.backend.Snapshot()
	return e.head.Copy(), snap, release
}

// View runs fn against a disposable snapshot of the committed state, prepared
// as if the next block was being initialized. Nothing fn writes persists.
func (e *Executive) View(fn func(ctx *registry.Context) error) error {
	head, snap, release := e.snapshot()
	defer release()

	header := &inter.Header{Number: head.Number + 1, ParentHash: head.Hash()}
	ctx := e.context(snap, header)
	var err error
	if perr := guard(func() {
		e.system.Initialize(ctx, header)
		err = fn(ctx)
	}); perr != nil {
		return perr
	}
	return err
}

// Committed runs fn against a disposable snapshot of the committed state as
// the head left it, events of the head included.
func (e *Executive) Committed(fn func(ctx *registry.Context) error) error {
	head, snap, release := e.snapshot()
	defer release()

	ctx := e.context(snap, &head)
	var err error
	if perr := guard(func() { err = fn(ctx) }); perr != nil {
		return perr
	}
	return err
}

// ValidateTransaction runs the pool checks of xt against the committed state.
// It is safe to call concurrently with block execution.
func (e *Executive) ValidateTransaction(source validity.Source, xt *inter.Extrinsic) (validity.ValidTransaction, error) {
	var valid validity.ValidTransaction
	err := e.View(func(ctx *registry.Context) error {
		var err error
		valid, err = e.validator.Validate(ctx, source, xt)
		return err
	})
	return valid, err
}
