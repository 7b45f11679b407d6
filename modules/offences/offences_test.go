package offences_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/api"
	"github.com/rony4d/go-opera-runtime/executive"
	"github.com/rony4d/go-opera-runtime/integration"
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/offences"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

func genesisContext(t *testing.T, validators int) (api.Modules, *registry.Context, genesis.Genesis) {
	mods := integration.NewModules()
	rules := opera.FakeNetRules()
	ctx := registry.NewContext(state.NewMemory().Begin(), &inter.Header{Number: 1}, &rules, nil, mods.System)
	g, _ := genesis.FakeGenesis(rules, validators, big.NewInt(1000000))
	for _, m := range mods.List() {
		if b, ok := m.(executive.GenesisBuilder); ok {
			require.NoError(t, b.BuildGenesis(ctx, &g))
		}
	}
	return mods, ctx, g
}

func TestReportOnce(t *testing.T) {
	require := require.New(t)
	mods, ctx, g := genesisContext(t, 2)

	o := offences.Offence{Kind: offences.SlotEquivocation, TimeSlot: [2]uint64{5, 0}, Offender: 1}
	require.False(mods.Offences.IsKnown(ctx, o))
	require.True(mods.Offences.Report(ctx, o))
	require.False(mods.Offences.Report(ctx, o))
	require.True(mods.Offences.IsKnown(ctx, o))

	require.Equal(big.NewInt(900000), mods.Balances.FreeBalance(ctx, g.Authorities[0].Account))
	require.Equal(big.NewInt(1000000), mods.Balances.FreeBalance(ctx, g.Authorities[1].Account))

	validators := mods.Session.Validators(ctx)
	require.False(validators[0].Active())
	require.NotZero(validators[0].Status & drivertype.DoublesignBit)
	require.True(validators[1].Active())
}

func TestReportValidity(t *testing.T) {
	require := require.New(t)
	mods, ctx, _ := genesisContext(t, 2)

	o := offences.Offence{Kind: offences.VoteEquivocation, TimeSlot: [2]uint64{0, 3}, Offender: 2}
	valid, err := mods.Offences.ReportValidity(ctx, validity.Local, o)
	require.NoError(err)
	require.False(valid.Propagate)
	require.Equal(ctx.Rules.Epochs.ReportLongevity, valid.Longevity)
	require.Len(valid.Provides, 1)

	for _, source := range []validity.Source{validity.External, validity.InBlock} {
		same, err := mods.Offences.ReportValidity(ctx, source, o)
		require.NoError(err)
		require.Equal(valid, same)
	}

	mods.Offences.Report(ctx, o)
	_, err = mods.Offences.ReportValidity(ctx, validity.InBlock, o)
	require.ErrorIs(err, validity.ErrStale)

	other := o
	other.TimeSlot[1]++
	_, err = mods.Offences.ReportValidity(ctx, validity.InBlock, other)
	require.NoError(err)
	require.NotEqual(o.ID(), other.ID())
}
