package session_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/api"
	"github.com/rony4d/go-opera-runtime/executive"
	"github.com/rony4d/go-opera-runtime/integration"
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/modules/session"
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

func TestKeysTakeEffectAfterTwoRotations(t *testing.T) {
	require := require.New(t)
	mods, ctx, g := genesisContext(t, 2)
	who := g.Authorities[0].Account

	keys, _, err := validatorpk.GenerateSessionKeys([]byte("//rotated"))
	require.NoError(err)
	call, err := session.SetKeysCall(keys)
	require.NoError(err)
	require.NoError(mods.Session.Dispatch(ctx, registry.Signed(who), call))

	owner, ok := mods.Session.KeyOwner(ctx, validatorpk.Babe, keys.Babe)
	require.True(ok)
	require.Equal(who, owner)
	_, ok = mods.Session.KeyOwner(ctx, validatorpk.Babe, g.Authorities[0].Keys.Babe)
	require.False(ok)

	mods.Session.Rotate(ctx)
	require.EqualValues(1, mods.Session.CurrentIndex(ctx))
	require.True(mods.Session.Validators(ctx)[0].Keys.Babe.Equal(g.Authorities[0].Keys.Babe))
	require.True(mods.Session.Queued(ctx)[0].Keys.Babe.Equal(keys.Babe))

	mods.Session.Rotate(ctx)
	require.True(mods.Session.Validators(ctx)[0].Keys.Babe.Equal(keys.Babe))
	require.True(mods.Babe.CurrentEpoch(ctx).Authorities[0].Key.Equal(keys.Babe))
	require.Equal(uint64(1), mods.Grandpa.CurrentSetID(ctx))
	require.True(mods.Grandpa.Authorities(ctx)[0].Key.Equal(keys.Grandpa))
}

func TestSetKeysRejects(t *testing.T) {
	require := require.New(t)
	mods, ctx, g := genesisContext(t, 2)

	taken, err := session.SetKeysCall(g.Authorities[1].Keys)
	require.NoError(err)
	err = mods.Session.Dispatch(ctx, registry.Signed(g.Authorities[0].Account), taken)
	require.Equal(registry.ModuleError, registry.AsDispatchError(err).Kind)

	stranger := genesis.FakeKey(100)
	keys, _, err := validatorpk.GenerateSessionKeys([]byte("//stranger"))
	require.NoError(err)
	call, err := session.SetKeysCall(keys)
	require.NoError(err)
	err = mods.Session.Dispatch(ctx, registry.Signed(crypto.PubkeyToAddress(stranger.PublicKey)), call)
	require.Equal(registry.ModuleError, registry.AsDispatchError(err).Kind)

	require.Error(mods.Session.Dispatch(ctx, registry.None(), call))
}

func TestPurgeKeys(t *testing.T) {
	require := require.New(t)
	mods, ctx, g := genesisContext(t, 2)
	who := g.Authorities[1].Account

	require.NoError(mods.Session.Dispatch(ctx, registry.Signed(who), session.PurgeKeysCall()))
	_, ok := mods.Session.NextKeys(ctx, who)
	require.False(ok)
	require.Error(mods.Session.Dispatch(ctx, registry.Signed(who), session.PurgeKeysCall()))

	mods.Session.Rotate(ctx)
	require.Len(mods.Session.Queued(ctx), 1)
}

func TestHistoryDepth(t *testing.T) {
	require := require.New(t)
	mods, ctx, _ := genesisContext(t, 1)
	depth := ctx.Rules.Epochs.HistoryDepth

	for i := uint32(0); i < depth; i++ {
		mods.Session.Rotate(ctx)
	}
	_, ok := mods.Historical.Root(ctx, 0)
	require.False(ok)
	_, ok = mods.Historical.Root(ctx, 1)
	require.True(ok)
	require.EqualValues(depth, mods.Historical.Current(ctx).Session)
}
