package validation

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

const (
	callNormal uint8 = iota
	callOperational
	callMandatory
	callHeavy
)

type testModule struct {
	registry.Base
}

func (m *testModule) Capabilities() registry.Capabilities {
	return registry.Calls | registry.ValidateUnsigned | registry.Inherent
}

func (m *testModule) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case callNormal:
		return registry.DispatchInfo{Weight: 10, Class: inter.Normal, PaysFee: true}, nil
	case callOperational:
		return registry.DispatchInfo{Weight: 10, Class: inter.Operational, PaysFee: true}, nil
	case callMandatory:
		return registry.DispatchInfo{Weight: 10, Class: inter.Mandatory}, nil
	case callHeavy:
		return registry.DispatchInfo{Weight: 80000, Class: inter.Normal, PaysFee: true}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *testModule) Dispatch(*registry.Context, registry.Origin, inter.Call) error {
	return nil
}

func (m *testModule) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{}
}

func (m *testModule) CreateInherents(*registry.Context, registry.InherentData) ([]inter.Call, error) {
	return []inter.Call{inter.MustCall(m.Index(), callMandatory, nil)}, nil
}

func (m *testModule) IsInherent(call inter.Call) bool {
	return call.Function == callMandatory
}

func (m *testModule) CheckInherent(*registry.Context, inter.Call, registry.InherentData) error {
	return nil
}

func (m *testModule) ValidateUnsigned(_ *registry.Context, _ validity.Source, call inter.Call) (validity.ValidTransaction, error) {
	if call.Function != callNormal {
		return validity.ValidTransaction{}, validity.CustomError(1)
	}
	valid := validity.Default()
	valid.Provides = []validity.Tag{validity.Tag("report")}
	valid.Longevity = 16
	return valid, nil
}

// noUnsigned has calls but validates no unsigned extrinsics.
type noUnsigned struct {
	testModule
}

func (m *noUnsigned) Capabilities() registry.Capabilities {
	return registry.Calls
}

type fakeSystem struct {
	nonces  map[common.Address]uint64
	genesis hash.Hash
	hashes  map[idx.Block]hash.Hash
	block   iblockproc.BlockState
}

func (s *fakeSystem) AccountNonce(_ *registry.Context, addr common.Address) uint64 {
	return s.nonces[addr]
}

func (s *fakeSystem) IncAccountNonce(_ *registry.Context, addr common.Address) {
	s.nonces[addr]++
}

func (s *fakeSystem) GenesisHash(*registry.Context) hash.Hash {
	return s.genesis
}

func (s *fakeSystem) BlockHash(_ *registry.Context, n idx.Block) (hash.Hash, bool) {
	h, ok := s.hashes[n]
	return h, ok
}

func (s *fakeSystem) BlockState(*registry.Context) iblockproc.BlockState {
	return s.block
}

func (s *fakeSystem) SetBlockState(_ *registry.Context, bs iblockproc.BlockState) {
	s.block = bs
}

type fakeCurrency map[common.Address]*big.Int

func (c fakeCurrency) FreeBalance(_ *registry.Context, addr common.Address) *big.Int {
	if b, ok := c[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (c fakeCurrency) Withdraw(_ *registry.Context, addr common.Address, amount *big.Int) error {
	b := c.FreeBalance(nil, addr)
	if b.Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	c[addr] = b.Sub(b, amount)
	return nil
}

type fakePayment struct{}

func (fakePayment) Multiplier(*registry.Context) *big.Int {
	return new(big.Int).Set(opera.FixedOne)
}

type testEnv struct {
	rules    opera.Rules
	system   *fakeSystem
	currency fakeCurrency
	v        *Validator
	key      *ecdsa.PrivateKey
	addr     common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	env := &testEnv{
		rules: opera.FakeNetRules(),
		system: &fakeSystem{
			nonces:  map[common.Address]uint64{},
			genesis: hash.Of([]byte("genesis")),
			hashes:  map[idx.Block]hash.Hash{0: hash.Of([]byte("genesis")), 4: hash.Of([]byte("4"))},
		},
		currency: fakeCurrency{},
		key:      key,
		addr:     crypto.PubkeyToAddress(key.PublicKey),
	}
	env.currency[env.addr] = big.NewInt(1000000)
	reg := registry.MustNew(
		&testModule{registry.Base{Idx: 1, ModuleName: "Test"}},
		&noUnsigned{testModule{registry.Base{Idx: 2, ModuleName: "Plain"}}},
	)
	env.v = New(reg, env.system, env.currency, fakePayment{})
	return env
}

func (env *testEnv) ctx() *registry.Context {
	return registry.NewContext(state.NewMemory().Begin(), &inter.Header{Number: 5}, &env.rules, nil, nil)
}

func (env *testEnv) extra(nonce uint64) inter.SignedExtra {
	return inter.SignedExtra{
		SpecVersion: env.rules.Version.SpecVersion,
		TxVersion:   env.rules.Version.TxVersion,
		Genesis:     env.system.genesis,
		Era:         inter.Mortal(4, 64),
		Nonce:       nonce,
		Tip:         big.NewInt(0),
	}
}

func (env *testEnv) sign(t *testing.T, function uint8, extra inter.SignedExtra) *inter.Extrinsic {
	xt, err := inter.SignExtrinsic(inter.MustCall(1, function, nil), extra, env.key)
	require.NoError(t, err)
	return xt
}

func TestStages(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, []string{
		"CheckSpecVersion",
		"CheckTxVersion",
		"CheckGenesis",
		"CheckEra",
		"CheckNonce",
		"CheckWeight",
		"ChargeTransactionPayment",
	}, env.v.Stages())
}

func TestComputeFee(t *testing.T) {
	require := require.New(t)

	rules := opera.FakeEconomyRules()
	info := registry.DispatchInfo{Weight: 200, PaysFee: true}
	require.Equal(big.NewInt(301), ComputeFee(&rules, 100, info, opera.FixedOne, nil))

	double := new(big.Int).Mul(opera.FixedOne, big.NewInt(2))
	d := ComputeFeeDetails(&rules, 100, info, double, big.NewInt(5))
	require.Equal(big.NewInt(400), d.AdjustedWeightFee)
	require.Equal(big.NewInt(501), d.InclusionFee())
	require.Equal(big.NewInt(506), d.Total())

	info.PaysFee = false
	require.Equal(big.NewInt(5), ComputeFee(&rules, 100, info, opera.FixedOne, big.NewInt(5)))
}

func TestNextMultiplier(t *testing.T) {
	require := require.New(t)

	rules := opera.FakeNetRules()
	limit, _ := rules.Blocks.ClassLimits(inter.Normal)
	target := limit / 100 * inter.Weight(rules.Economy.FeeAdjustment.TargetFullness)

	one := opera.FixedOne
	require.Equal(0, NextMultiplier(&rules, one, target).Cmp(one))
	require.Equal(1, NextMultiplier(&rules, one, limit).Cmp(one))
	require.Equal(-1, NextMultiplier(&rules, one, 0).Cmp(one))

	min := rules.Economy.FeeAdjustment.MinMultiplier
	require.Equal(0, NextMultiplier(&rules, min, 0).Cmp(min))
	max := rules.Economy.FeeAdjustment.MaxMultiplier
	require.Equal(0, NextMultiplier(&rules, max, limit).Cmp(max))
}

func TestValidateSigned(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	xt := env.sign(t, callNormal, env.extra(0))
	valid, err := env.v.Validate(env.ctx(), validity.External, xt)
	require.NoError(err)
	require.Equal([]validity.Tag{nonceTag(env.addr, 0)}, valid.Provides)
	// death 68 at block 5
	require.Equal(uint64(63), valid.Longevity)
	require.True(valid.Propagate)
	fee := ComputeFee(&env.rules.Economy, xt.Size(), registry.DispatchInfo{Weight: 10, PaysFee: true}, opera.FixedOne, nil)
	require.Equal(fee.Uint64(), valid.Priority)

	local, err := env.v.Validate(env.ctx(), validity.Local, xt)
	require.NoError(err)
	require.Equal(valid.Priority+env.rules.Pool.LocalPriorityBoost, local.Priority)

	inBlock, err := env.v.Validate(env.ctx(), validity.InBlock, xt)
	require.NoError(err)
	require.False(inBlock.Propagate)

	op, err := env.v.Validate(env.ctx(), validity.External, env.sign(t, callOperational, env.extra(0)))
	require.NoError(err)
	require.Greater(op.Priority, env.rules.Pool.OperationalPriority)

	// pool validation leaves no trace
	require.Equal(uint64(0), env.system.nonces[env.addr])
	require.Equal(big.NewInt(1000000), env.currency[env.addr])
}

func TestValidateRejects(t *testing.T) {
	env := newTestEnv(t)
	env.system.nonces[env.addr] = 3

	tests := []struct {
		name   string
		xt     func() *inter.Extrinsic
		expect error
	}{
		{"stale", func() *inter.Extrinsic { return env.sign(t, callNormal, env.extra(2)) }, validity.ErrStale},
		{"future", func() *inter.Extrinsic { return env.sign(t, callNormal, env.extra(4)) }, validity.ErrFuture},
		{"spec version", func() *inter.Extrinsic {
			e := env.extra(3)
			e.SpecVersion++
			return env.sign(t, callNormal, e)
		}, validity.ErrBadProof},
		{"tx version", func() *inter.Extrinsic {
			e := env.extra(3)
			e.TxVersion++
			return env.sign(t, callNormal, e)
		}, validity.ErrBadProof},
		{"genesis", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Genesis = hash.Of([]byte("other"))
			return env.sign(t, callNormal, e)
		}, validity.ErrBadProof},
		{"expired", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Era = inter.Mortal(1, 2)
			return env.sign(t, callNormal, e)
		}, validity.ErrExpired},
		{"not yet born", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Era = inter.Mortal(6, 8)
			return env.sign(t, callNormal, e)
		}, validity.ErrExpired},
		{"ancient birth", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Era = inter.Mortal(3, 8)
			return env.sign(t, callNormal, e)
		}, validity.ErrAncientBirthBlock},
		{"period too long", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Era = inter.Mortal(4, uint64(env.rules.Blocks.BlockHashCount)+1)
			return env.sign(t, callNormal, e)
		}, validity.ErrBadProof},
		{"tampered", func() *inter.Extrinsic {
			xt := env.sign(t, callNormal, env.extra(3))
			xt.Signature.Extra.Tip = big.NewInt(1)
			return xt
		}, validity.ErrBadProof},
		{"exhausts resources", func() *inter.Extrinsic { return env.sign(t, callHeavy, env.extra(3)) }, validity.ErrExhaustsResources},
		{"cannot pay", func() *inter.Extrinsic {
			e := env.extra(3)
			e.Tip = big.NewInt(2000000)
			return env.sign(t, callNormal, e)
		}, validity.ErrPayment},
		{"signed mandatory", func() *inter.Extrinsic { return env.sign(t, callMandatory, env.extra(3)) }, validity.ErrMandatoryDispatch},
		{"unknown function", func() *inter.Extrinsic { return env.sign(t, 9, env.extra(3)) }, validity.ErrCall},
		{"unroutable", func() *inter.Extrinsic { return inter.NewUnsigned(inter.MustCall(7, 0, nil)) }, validity.ErrCall},
		{"inherent", func() *inter.Extrinsic { return inter.NewUnsigned(inter.MustCall(1, callMandatory, nil)) }, validity.ErrCall},
		{"no unsigned validator", func() *inter.Extrinsic { return inter.NewUnsigned(inter.MustCall(2, callNormal, nil)) }, validity.ErrNoUnsignedValidator},
		{"unsigned rejected", func() *inter.Extrinsic { return inter.NewUnsigned(inter.MustCall(1, callOperational, nil)) }, validity.CustomError(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.v.Validate(env.ctx(), validity.External, tt.xt())
			require.ErrorIs(t, err, tt.expect)
		})
	}
}

func TestValidateUnsigned(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	valid, err := env.v.Validate(env.ctx(), validity.External, inter.NewUnsigned(inter.MustCall(1, callNormal, nil)))
	require.NoError(err)
	require.Equal([]validity.Tag{validity.Tag("report")}, valid.Provides)
	require.Equal(uint64(16), valid.Longevity)
}

func TestPreDispatch(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	ctx := env.ctx()

	c, err := env.v.Check(env.sign(t, callNormal, env.extra(0)))
	require.NoError(err)
	require.NoError(env.v.PreDispatch(ctx, c))

	require.Equal(uint64(1), env.system.nonces[env.addr])
	require.NotNil(c.Fee)
	require.Equal(new(big.Int).Sub(big.NewInt(1000000), c.Fee), env.currency[env.addr])
	require.Equal(inter.Weight(10)+env.rules.Blocks.ExtrinsicBaseWeight, env.system.block.Weight.Get(inter.Normal))
	require.Equal(c.Len, env.system.block.Length)

	// replay of the same nonce is stale and changes nothing
	err = env.v.PreDispatch(ctx, c)
	require.ErrorIs(err, validity.ErrStale)
	require.Equal(uint64(1), env.system.nonces[env.addr])

	// inherents pass in apply mode and only account weight
	in, err := env.v.Check(inter.NewUnsigned(inter.MustCall(1, callMandatory, nil)))
	require.NoError(err)
	require.True(in.Inherent)
	require.NoError(env.v.PreDispatch(ctx, in))
	require.Equal(inter.Weight(10)+env.rules.Blocks.ExtrinsicBaseWeight, env.system.block.Weight.Get(inter.Mandatory))
}

func TestPreDispatchBlockFull(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	limit, _ := env.rules.Blocks.ClassLimits(inter.Normal)
	env.system.block.Weight.Add(inter.Normal, limit-50)

	c, err := env.v.Check(env.sign(t, callNormal, env.extra(0)))
	require.NoError(err)
	require.ErrorIs(env.v.PreDispatch(env.ctx(), c), validity.ErrExhaustsResources)
	// the failing chain left the nonce and balance alone
	require.Equal(uint64(0), env.system.nonces[env.addr])
	require.Equal(big.NewInt(1000000), env.currency[env.addr])

	// a single extrinsic still fits in an empty block, so the pool accepts it
	_, err = env.v.Validate(env.ctx(), validity.External, c.Xt)
	require.NoError(err)
}

func TestQueryFeeDetails(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	e := env.extra(0)
	e.Tip = big.NewInt(9)
	xt := env.sign(t, callNormal, e)
	info, details, err := env.v.QueryFeeDetails(env.ctx(), xt)
	require.NoError(err)
	require.Equal(inter.Weight(10), info.Weight)
	require.Equal(big.NewInt(9), details.Tip)
	require.Equal(new(big.Int).SetUint64(1+xt.Size()+10+9), details.Total())
}
