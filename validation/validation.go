// Package validation is the admission check every extrinsic passes before dispatch.
//
// Signed extrinsics go through an ordered chain of stages. In pool mode only the
// read-only half of each stage runs, against a disposable snapshot. In apply mode
// all stages validate first and then pre-dispatch in order, writing nonce, weight
// and fee effects into the block state. The chain fails fast.
package validation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/registry"
)

// Mode selects between admission checks for the pool and for block application.
type Mode uint8

const (
	PoolMode Mode = iota
	ApplyMode
)

func (m Mode) String() string {
	if m == PoolMode {
		return "pool"
	}
	return "apply"
}

// System is the chain bookkeeping the stages rely on.
type System interface {
	AccountNonce(ctx *registry.Context, addr common.Address) uint64
	IncAccountNonce(ctx *registry.Context, addr common.Address)
	GenesisHash(ctx *registry.Context) hash.Hash
	BlockHash(ctx *registry.Context, n idx.Block) (hash.Hash, bool)
	BlockState(ctx *registry.Context) iblockproc.BlockState
	SetBlockState(ctx *registry.Context, bs iblockproc.BlockState)
}

// Currency is what the fee stage withdraws from.
type Currency interface {
	FreeBalance(ctx *registry.Context, addr common.Address) *big.Int
	// Withdraw fails if the balance is insufficient.
	Withdraw(ctx *registry.Context, addr common.Address, amount *big.Int) error
}

// Payment holds the current fee multiplier.
type Payment interface {
	Multiplier(ctx *registry.Context) *big.Int
}

// Context is the environment of one validation run.
type Context struct {
	*registry.Context
	Mode   Mode
	Source validity.Source
}

// Checked is an extrinsic as the chain sees it.
type Checked struct {
	Xt   *inter.Extrinsic
	Info registry.DispatchInfo
	// Len is the encoded size.
	Len uint64
	// Fee is set by the payment stage on pre-dispatch.
	Fee *big.Int
	// Inherent is set for unsigned calls provided by a module's inherent.
	Inherent bool
}

// Stage is one link of the signed extension chain.
type Stage interface {
	Name() string
	// Validate must not write to state.
	Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error)
	PreDispatch(ctx *Context, c *Checked) error
}

// Validator runs the chain.
type Validator struct {
	registry *registry.Registry
	system   System
	currency Currency
	payment  Payment
	stages   []Stage
}

// New builds the chain in its fixed order.
func New(reg *registry.Registry, system System, currency Currency, payment Payment) *Validator {
	v := &Validator{registry: reg, system: system, currency: currency, payment: payment}
	v.stages = []Stage{
		checkSpecVersion{},
		checkTxVersion{},
		checkGenesis{system},
		checkEra{system},
		checkNonce{system},
		checkWeight{system},
		chargeTransactionPayment{currency, payment},
	}
	return v
}

// Stages lists the stage names in order.
func (v *Validator) Stages() []string {
	names := make([]string, len(v.stages))
	for i, s := range v.stages {
		names[i] = s.Name()
	}
	return names
}

// Check decodes the dispatch info of an extrinsic and verifies its signature.
// ErrUnroutable is returned unwrapped from validity so that block execution can treat it as fatal.
func (v *Validator) Check(xt *inter.Extrinsic) (*Checked, error) {
	c := &Checked{Xt: xt, Len: xt.Size()}
	info, err := v.registry.Weigh(xt.Call)
	if err != nil {
		if errors.Is(err, registry.ErrUnroutable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", validity.ErrCall, err)
	}
	c.Info = info
	if xt.IsSigned() {
		if err := xt.VerifySignature(); err != nil {
			return nil, validity.ErrBadProof
		}
		if info.Class == inter.Mandatory {
			return nil, validity.ErrMandatoryDispatch
		}
	} else {
		c.Inherent = v.registry.IsInherent(xt.Call)
	}
	return c, nil
}

// Validate runs the pool-mode checks. ctx must be backed by a disposable snapshot.
func (v *Validator) Validate(ctx *registry.Context, source validity.Source, xt *inter.Extrinsic) (validity.ValidTransaction, error) {
	c, err := v.Check(xt)
	if err != nil {
		if errors.Is(err, registry.ErrUnroutable) {
			return validity.ValidTransaction{}, fmt.Errorf("%w: %v", validity.ErrCall, err)
		}
		return validity.ValidTransaction{}, err
	}
	vctx := &Context{Context: ctx, Mode: PoolMode, Source: source}

	var valid validity.ValidTransaction
	if xt.IsSigned() {
		valid, err = v.validateSigned(vctx, c)
	} else {
		valid, err = v.validateUnsigned(vctx, c)
	}
	if err != nil {
		return validity.ValidTransaction{}, err
	}
	return v.applyPolicy(ctx, source, c, valid), nil
}

// PreDispatch runs the apply-mode chain and leaves its effects in ctx's state.
func (v *Validator) PreDispatch(ctx *registry.Context, c *Checked) error {
	vctx := &Context{Context: ctx, Mode: ApplyMode, Source: validity.InBlock}
	if !c.Xt.IsSigned() {
		if _, err := v.validateUnsigned(vctx, c); err != nil {
			return err
		}
		return checkWeight{v.system}.PreDispatch(vctx, c)
	}
	if _, err := v.validateSigned(vctx, c); err != nil {
		return err
	}
	for _, s := range v.stages {
		if err := s.PreDispatch(vctx, c); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (v *Validator) validateSigned(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	valid := validity.Default()
	for _, s := range v.stages {
		res, err := s.Validate(ctx, c)
		if err != nil {
			return validity.ValidTransaction{}, fmt.Errorf("%s: %w", s.Name(), err)
		}
		valid = valid.Combine(res)
	}
	return valid, nil
}

func (v *Validator) validateUnsigned(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	if c.Inherent {
		if ctx.Mode == PoolMode {
			return validity.ValidTransaction{}, fmt.Errorf("%w: inherent %s submitted to the pool", validity.ErrCall, c.Xt.Call)
		}
		return validity.Default(), nil
	}
	if c.Info.Class == inter.Mandatory {
		return validity.ValidTransaction{}, validity.ErrMandatoryDispatch
	}
	uv, ok := v.registry.UnsignedValidator(c.Xt.Call)
	if !ok {
		return validity.ValidTransaction{}, validity.ErrNoUnsignedValidator
	}
	valid, err := uv.ValidateUnsigned(ctx.Context, ctx.Source, c.Xt.Call)
	if err != nil {
		return validity.ValidTransaction{}, err
	}
	res, err := checkWeight{v.system}.Validate(ctx, c)
	if err != nil {
		return validity.ValidTransaction{}, err
	}
	return valid.Combine(res), nil
}

// applyPolicy adjusts priority and propagation by source. It never changes the verdict.
func (v *Validator) applyPolicy(ctx *registry.Context, source validity.Source, c *Checked, valid validity.ValidTransaction) validity.ValidTransaction {
	pool := ctx.Rules.Pool
	if c.Info.Class == inter.Operational {
		valid = valid.Combine(validity.ValidTransaction{Priority: pool.OperationalPriority, Longevity: valid.Longevity, Propagate: true})
	}
	switch source {
	case validity.Local:
		valid = valid.Combine(validity.ValidTransaction{Priority: pool.LocalPriorityBoost, Longevity: valid.Longevity, Propagate: true})
	case validity.InBlock:
		valid.Propagate = false
	}
	return valid
}

// QueryFeeDetails computes the fee an extrinsic would pay in the next block.
func (v *Validator) QueryFeeDetails(ctx *registry.Context, xt *inter.Extrinsic) (registry.DispatchInfo, FeeDetails, error) {
	info, err := v.registry.Weigh(xt.Call)
	if err != nil {
		return registry.DispatchInfo{}, FeeDetails{}, err
	}
	var tip *big.Int
	if xt.IsSigned() {
		tip = xt.Signature.Extra.Tip
	} else {
		// unsigned extrinsics never pay
		info.PaysFee = false
	}
	return info, ComputeFeeDetails(&ctx.Rules.Economy, xt.Size(), info, v.payment.Multiplier(ctx), tip), nil
}
