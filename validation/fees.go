package validation

import (
	"math/big"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/registry"
)

// FeeDetails is the breakdown of a transaction fee.
type FeeDetails struct {
	BaseFee           *big.Int
	LenFee            *big.Int
	AdjustedWeightFee *big.Int
	Tip               *big.Int
}

// InclusionFee is the fee without the tip.
func (d FeeDetails) InclusionFee() *big.Int {
	fee := new(big.Int).Add(d.BaseFee, d.LenFee)
	return fee.Add(fee, d.AdjustedWeightFee)
}

// Total is what the sender is charged.
func (d FeeDetails) Total() *big.Int {
	return new(big.Int).Add(d.InclusionFee(), d.Tip)
}

// ComputeFeeDetails evaluates base + len*perByte + weight*perWeight*multiplier + tip.
// The multiplier is 18-decimal fixed point. Calls that do not pay fees are charged the tip only.
func ComputeFeeDetails(rules *opera.EconomyRules, length uint64, info registry.DispatchInfo, multiplier, tip *big.Int) FeeDetails {
	d := FeeDetails{
		BaseFee:           new(big.Int),
		LenFee:            new(big.Int),
		AdjustedWeightFee: new(big.Int),
		Tip:               new(big.Int),
	}
	if tip != nil {
		d.Tip.Set(tip)
	}
	if !info.PaysFee {
		return d
	}
	d.BaseFee.Set(rules.BaseFee)
	d.LenFee.Mul(new(big.Int).SetUint64(length), rules.PerByteFee)
	d.AdjustedWeightFee.Mul(new(big.Int).SetUint64(uint64(info.Weight)), rules.PerWeightFee)
	d.AdjustedWeightFee.Mul(d.AdjustedWeightFee, multiplier)
	d.AdjustedWeightFee.Quo(d.AdjustedWeightFee, opera.FixedOne)
	return d
}

// ComputeFee is the total of ComputeFeeDetails.
func ComputeFee(rules *opera.EconomyRules, length uint64, info registry.DispatchInfo, multiplier, tip *big.Int) *big.Int {
	return ComputeFeeDetails(rules, length, info, multiplier, tip).Total()
}

// NextMultiplier applies the targeted fee adjustment
//
//	next = prev * (1 + v*d + (v*d)^2/2)
//
// where d is the normal-class block fullness minus the target fullness.
// The result is clamped to [MinMultiplier, MaxMultiplier].
func NextMultiplier(rules *opera.Rules, prev *big.Int, normalWeight inter.Weight) *big.Int {
	adj := rules.Economy.FeeAdjustment
	limit, _ := rules.Blocks.ClassLimits(inter.Normal)
	if limit == 0 {
		return clamp(new(big.Int).Set(prev), adj.MinMultiplier, adj.MaxMultiplier)
	}

	fullness := new(big.Int).SetUint64(uint64(normalWeight))
	fullness.Mul(fullness, opera.FixedOne)
	fullness.Quo(fullness, new(big.Int).SetUint64(uint64(limit)))

	target := new(big.Int).SetUint64(adj.TargetFullness)
	target.Mul(target, opera.FixedOne)
	target.Quo(target, big.NewInt(100))

	diff := new(big.Int).Sub(fullness, target)
	vd := new(big.Int).Mul(adj.Variability, diff)
	vd.Quo(vd, opera.FixedOne)

	sq := new(big.Int).Mul(vd, vd)
	sq.Quo(sq, opera.FixedOne)
	sq.Quo(sq, big.NewInt(2))

	factor := new(big.Int).Add(opera.FixedOne, vd)
	factor.Add(factor, sq)

	next := new(big.Int).Mul(prev, factor)
	next.Quo(next, opera.FixedOne)
	return clamp(next, adj.MinMultiplier, adj.MaxMultiplier)
}

func clamp(v, min, max *big.Int) *big.Int {
	if v.Cmp(min) < 0 {
		return new(big.Int).Set(min)
	}
	if v.Cmp(max) > 0 {
		return new(big.Int).Set(max)
	}
	return v
}

func priorityOf(fee *big.Int) uint64 {
	if !fee.IsUint64() {
		return ^uint64(0)
	}
	return fee.Uint64()
}
