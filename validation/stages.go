package validation

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validity"
)

type checkSpecVersion struct{}

func (checkSpecVersion) Name() string { return "CheckSpecVersion" }

func (checkSpecVersion) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	if c.Xt.Extra().SpecVersion != ctx.Rules.Version.SpecVersion {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	return validity.Default(), nil
}

func (checkSpecVersion) PreDispatch(*Context, *Checked) error { return nil }

type checkTxVersion struct{}

func (checkTxVersion) Name() string { return "CheckTxVersion" }

func (checkTxVersion) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	if c.Xt.Extra().TxVersion != ctx.Rules.Version.TxVersion {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	return validity.Default(), nil
}

func (checkTxVersion) PreDispatch(*Context, *Checked) error { return nil }

type checkGenesis struct {
	system System
}

func (checkGenesis) Name() string { return "CheckGenesis" }

func (s checkGenesis) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	if c.Xt.Extra().Genesis != s.system.GenesisHash(ctx.Context) {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	return validity.Default(), nil
}

func (checkGenesis) PreDispatch(*Context, *Checked) error { return nil }

// checkEra rejects extrinsics outside their validity window.
type checkEra struct {
	system System
}

func (checkEra) Name() string { return "CheckEra" }

func (s checkEra) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	era := c.Xt.Extra().Era
	if era.IsImmortal() {
		return validity.Default(), nil
	}
	if era.Period > uint64(ctx.Rules.Blocks.BlockHashCount) {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	n := ctx.Number()
	if !era.Contains(n) {
		return validity.ValidTransaction{}, validity.ErrExpired
	}
	if era.Birth < n {
		if _, ok := s.system.BlockHash(ctx.Context, era.Birth); !ok {
			return validity.ValidTransaction{}, validity.ErrAncientBirthBlock
		}
	}
	valid := validity.Default()
	valid.Longevity = uint64(era.Death() - n)
	return valid, nil
}

func (checkEra) PreDispatch(*Context, *Checked) error { return nil }

// checkNonce requires the exact next nonce of the sender.
type checkNonce struct {
	system System
}

func (checkNonce) Name() string { return "CheckNonce" }

func nonceTag(addr common.Address, nonce uint64) validity.Tag {
	return append(append(validity.Tag{}, addr.Bytes()...), bigendian.Uint64ToBytes(nonce)...)
}

func (s checkNonce) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	signer := c.Xt.Signer()
	nonce := c.Xt.Extra().Nonce
	expected := s.system.AccountNonce(ctx.Context, signer)
	if nonce < expected {
		return validity.ValidTransaction{}, validity.ErrStale
	}
	if nonce > expected {
		return validity.ValidTransaction{}, validity.ErrFuture
	}
	valid := validity.Default()
	valid.Provides = []validity.Tag{nonceTag(signer, nonce)}
	return valid, nil
}

func (s checkNonce) PreDispatch(ctx *Context, c *Checked) error {
	s.system.IncAccountNonce(ctx.Context, c.Xt.Signer())
	return nil
}

// checkWeight keeps each dispatch class within its share of the block.
// In pool mode only the extrinsic itself is checked against the limits.
type checkWeight struct {
	system System
}

func (checkWeight) Name() string { return "CheckWeight" }

func (s checkWeight) consumed(ctx *Context) (inter.ClassWeights, uint64) {
	if ctx.Mode == PoolMode {
		return inter.ClassWeights{}, 0
	}
	bs := s.system.BlockState(ctx.Context)
	return bs.Weight, bs.Length
}

func (s checkWeight) check(ctx *Context, c *Checked) (inter.ClassWeights, uint64, error) {
	blocks := ctx.Rules.Blocks
	weight, length := s.consumed(ctx)

	w := c.Info.Weight.SaturatingAdd(blocks.ExtrinsicBaseWeight)
	weight.Add(c.Info.Class, w)
	length += c.Len

	maxWeight, maxLength := blocks.ClassLimits(c.Info.Class)
	if weight.Get(c.Info.Class) > maxWeight || length > maxLength {
		return weight, length, validity.ErrExhaustsResources
	}
	if c.Info.Class != inter.Mandatory {
		if weight.Total() > blocks.MaxBlockWeight || length > blocks.MaxBlockLength {
			return weight, length, validity.ErrExhaustsResources
		}
	}
	return weight, length, nil
}

func (s checkWeight) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	if _, _, err := s.check(ctx, c); err != nil {
		return validity.ValidTransaction{}, err
	}
	return validity.Default(), nil
}

func (s checkWeight) PreDispatch(ctx *Context, c *Checked) error {
	weight, length, err := s.check(ctx, c)
	if err != nil {
		return err
	}
	bs := s.system.BlockState(ctx.Context)
	bs.Weight = weight
	bs.Length = length
	s.system.SetBlockState(ctx.Context, bs)
	return nil
}

// chargeTransactionPayment withdraws the fee and derives the pool priority from it.
type chargeTransactionPayment struct {
	currency Currency
	payment  Payment
}

func (chargeTransactionPayment) Name() string { return "ChargeTransactionPayment" }

func (s chargeTransactionPayment) fee(ctx *Context, c *Checked) *big.Int {
	return ComputeFee(&ctx.Rules.Economy, c.Len, c.Info, s.payment.Multiplier(ctx.Context), c.Xt.Extra().Tip)
}

func (s chargeTransactionPayment) Validate(ctx *Context, c *Checked) (validity.ValidTransaction, error) {
	fee := s.fee(ctx, c)
	if s.currency.FreeBalance(ctx.Context, c.Xt.Signer()).Cmp(fee) < 0 {
		return validity.ValidTransaction{}, validity.ErrPayment
	}
	valid := validity.Default()
	valid.Priority = priorityOf(fee)
	return valid, nil
}

func (s chargeTransactionPayment) PreDispatch(ctx *Context, c *Checked) error {
	fee := s.fee(ctx, c)
	if fee.Sign() != 0 {
		if err := s.currency.Withdraw(ctx.Context, c.Xt.Signer(), fee); err != nil {
			return fmt.Errorf("%w: %v", validity.ErrPayment, err)
		}
	}
	c.Fee = fee
	return nil
}
