// Package opera defines the consensus-critical parameters of the runtime.
//
// Rules are fixed per network and must be identical on every node executing
// the same chain: any difference changes fees, weight accounting or epoch
// boundaries and therefore the resulting state roots.
package opera

import (
	"encoding/json"
	"math"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-opera-runtime/inter"
)

const (
	MainNetworkID uint64 = 0xfa
	TestNetworkID uint64 = 0xfa2
	FakeNetworkID uint64 = 0xfa3
)

// FixedOne is 1.0 in the 18-decimal fixed point used for fee multipliers.
var FixedOne = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// RuntimeVersion identifies the state-transition logic.
// SpecVersion and TxVersion are checked against every signed extrinsic.
type RuntimeVersion struct {
	SpecName         string
	ImplName         string
	AuthoringVersion uint32
	SpecVersion      uint32
	ImplVersion      uint32
	TxVersion        uint32
}

// Rules describes a network.
type Rules struct {
	Name      string
	NetworkID uint64

	Version RuntimeVersion

	Blocks BlocksRules

	Economy EconomyRules

	Epochs EpochsRules

	Pool PoolRules
}

// BlocksRules bound the resources a block may consume.
type BlocksRules struct {
	MaxBlockWeight inter.Weight
	MaxBlockLength uint64
	// NormalRatio is the percentage of weight and length available to normal extrinsics.
	NormalRatio uint64

	// BlockExecutionWeight is charged on every block initialization.
	BlockExecutionWeight inter.Weight
	// ExtrinsicBaseWeight is added to the declared weight of every extrinsic.
	ExtrinsicBaseWeight inter.Weight

	// BlockHashCount is how many recent block hashes are kept. Mortal eras may not exceed it.
	BlockHashCount idx.Block
}

// FeeAdjustmentRules drive the per-block fee multiplier update.
// All values are 18-decimal fixed point except TargetFullness.
type FeeAdjustmentRules struct {
	// TargetFullness is the normal-class block fullness, in percent, at which the multiplier is stable.
	TargetFullness uint64
	Variability    *big.Int
	MinMultiplier  *big.Int
	MaxMultiplier  *big.Int
}

type EconomyRules struct {
	BaseFee      *big.Int
	PerByteFee   *big.Int
	PerWeightFee *big.Int

	// ExistentialDeposit is the smallest balance an account may hold.
	ExistentialDeposit *big.Int

	FeeAdjustment FeeAdjustmentRules

	// SlashPermill is the share of an offender's balance taken per offence.
	SlashPermill uint32
}

type EpochsRules struct {
	SlotDuration inter.Timestamp
	// EpochDuration is measured in slots. Sessions rotate at epoch boundaries.
	EpochDuration uint64
	// C is the primary slot probability as a fraction.
	C              [2]uint64
	SecondarySlots bool
	MaxAuthorities uint32
	// HistoryDepth is how many past sessions keep their ownership roots.
	HistoryDepth uint32
	// ReportLongevity is how many blocks an equivocation report stays valid in the pool.
	ReportLongevity uint64
}

// PoolRules shape what the transaction pool learns from validation. They never change a verdict.
type PoolRules struct {
	// LocalPriorityBoost is added to the priority of locally submitted transactions.
	LocalPriorityBoost uint64
	// OperationalPriority is the priority floor of operational extrinsics.
	OperationalPriority uint64
	// UnsignedPriority is the priority of consensus-critical unsigned extrinsics.
	UnsignedPriority uint64
}

// ClassLimits returns the weight and length budget of a dispatch class.
func (b BlocksRules) ClassLimits(class inter.DispatchClass) (inter.Weight, uint64) {
	switch class {
	case inter.Normal:
		return b.MaxBlockWeight / 100 * inter.Weight(b.NormalRatio), b.MaxBlockLength / 100 * b.NormalRatio
	case inter.Mandatory:
		return math.MaxUint64, math.MaxUint64
	}
	return b.MaxBlockWeight, b.MaxBlockLength
}

// Runtime versions of each network.
func MainNetVersion() RuntimeVersion {
	return RuntimeVersion{
		SpecName:         "opera-runtime",
		ImplName:         "opera-runtime-go",
		AuthoringVersion: 1,
		SpecVersion:      100,
		ImplVersion:      1,
		TxVersion:        1,
	}
}

// MainNetRules returns main network rules.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Version:   MainNetVersion(),
		Blocks:    DefaultBlocksRules(),
		Economy:   DefaultEconomyRules(),
		Epochs:    DefaultEpochsRules(),
		Pool:      DefaultPoolRules(),
	}
}

// TestNetRules returns test network rules.
func TestNetRules() Rules {
	rules := MainNetRules()
	rules.Name = "test"
	rules.NetworkID = TestNetworkID
	rules.Version.SpecName = "opera-runtime-test"
	return rules
}

// FakeNetRules returns fake network rules, used for local devnets and tests.
// Epochs are short and fees are round numbers.
func FakeNetRules() Rules {
	rules := MainNetRules()
	rules.Name = "fake"
	rules.NetworkID = FakeNetworkID
	rules.Version.SpecName = "opera-runtime-fake"
	rules.Blocks = FakeBlocksRules()
	rules.Economy = FakeEconomyRules()
	rules.Epochs = FakeNetEpochsRules()
	return rules
}

func DefaultBlocksRules() BlocksRules {
	return BlocksRules{
		MaxBlockWeight:       2000000000000,
		MaxBlockLength:       5 * 1024 * 1024,
		NormalRatio:          75,
		BlockExecutionWeight: 5000000000,
		ExtrinsicBaseWeight:  125000000,
		BlockHashCount:       2400,
	}
}

func FakeBlocksRules() BlocksRules {
	return BlocksRules{
		MaxBlockWeight:       100000,
		MaxBlockLength:       64 * 1024,
		NormalRatio:          75,
		BlockExecutionWeight: 1000,
		ExtrinsicBaseWeight:  100,
		BlockHashCount:       256,
	}
}

func DefaultFeeAdjustmentRules() FeeAdjustmentRules {
	return FeeAdjustmentRules{
		TargetFullness: 25,
		// 0.00001
		Variability: big.NewInt(1e13),
		// 1e-9
		MinMultiplier: big.NewInt(1e9),
		// 1e6
		MaxMultiplier: new(big.Int).Mul(FixedOne, big.NewInt(1e6)),
	}
}

func DefaultEconomyRules() EconomyRules {
	return EconomyRules{
		BaseFee:            big.NewInt(1e9),
		PerByteFee:         big.NewInt(1e6),
		PerWeightFee:       big.NewInt(1),
		ExistentialDeposit: big.NewInt(1e12),
		FeeAdjustment:      DefaultFeeAdjustmentRules(),
		SlashPermill:       100000,
	}
}

func FakeEconomyRules() EconomyRules {
	cfg := DefaultEconomyRules()
	cfg.BaseFee = big.NewInt(1)
	cfg.PerByteFee = big.NewInt(1)
	cfg.PerWeightFee = big.NewInt(1)
	cfg.ExistentialDeposit = big.NewInt(1)
	return cfg
}

func DefaultEpochsRules() EpochsRules {
	return EpochsRules{
		SlotDuration:    inter.Timestamp(3 * time.Second),
		EpochDuration:   200,
		C:               [2]uint64{1, 4},
		SecondarySlots:  true,
		MaxAuthorities:  100,
		HistoryDepth:    28,
		ReportLongevity: 2400,
	}
}

func FakeNetEpochsRules() EpochsRules {
	cfg := DefaultEpochsRules()
	cfg.SlotDuration = inter.Timestamp(1 * time.Second)
	cfg.EpochDuration = 10
	cfg.HistoryDepth = 4
	cfg.ReportLongevity = 64
	return cfg
}

func DefaultPoolRules() PoolRules {
	return PoolRules{
		LocalPriorityBoost:  1 << 20,
		OperationalPriority: 1 << 40,
		UnsignedPriority:    math.MaxUint64 / 2,
	}
}

// Copy constructs a deep copy of the rules.
func (r Rules) Copy() Rules {
	cp := r
	cp.Economy.BaseFee = copyBig(r.Economy.BaseFee)
	cp.Economy.PerByteFee = copyBig(r.Economy.PerByteFee)
	cp.Economy.PerWeightFee = copyBig(r.Economy.PerWeightFee)
	cp.Economy.ExistentialDeposit = copyBig(r.Economy.ExistentialDeposit)
	cp.Economy.FeeAdjustment.Variability = copyBig(r.Economy.FeeAdjustment.Variability)
	cp.Economy.FeeAdjustment.MinMultiplier = copyBig(r.Economy.FeeAdjustment.MinMultiplier)
	cp.Economy.FeeAdjustment.MaxMultiplier = copyBig(r.Economy.FeeAdjustment.MaxMultiplier)
	return cp
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
