package imonline

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

func signedHeartbeat(t *testing.T, v genesis.FakeValidator, hb Heartbeat) inter.Call {
	sig, err := crypto.Sign(hb.Payload().Bytes(), v.Session[validatorpk.ImOnline])
	require.NoError(t, err)
	call, err := HeartbeatCall(hb, sig)
	require.NoError(t, err)
	return call
}

func TestHeartbeat(t *testing.T) {
	require := require.New(t)
	rules := opera.FakeNetRules()
	sys := system.New()
	ctx := registry.NewContext(state.NewMemory().Begin(), &inter.Header{Number: 1}, &rules, nil, sys)
	g, validators := genesis.FakeGenesis(rules, 2, big.NewInt(1))
	m := New()
	m.OnGenesisSession(ctx, g.Authorities)

	hb := Heartbeat{BlockNumber: 1, AuthorityIndex: 1}
	call := signedHeartbeat(t, validators[1], hb)
	valid, err := m.ValidateUnsigned(ctx, validity.External, call)
	require.NoError(err)
	require.True(valid.Propagate)

	forged := signedHeartbeat(t, validators[0], hb)
	_, err = m.ValidateUnsigned(ctx, validity.External, forged)
	require.ErrorIs(err, validity.ErrBadProof)

	require.NoError(m.Dispatch(ctx, registry.None(), call))
	require.True(m.Received(ctx, 0, 1))
	require.ErrorIs(m.Dispatch(ctx, registry.None(), call), registry.NewModuleError(Index, codeDuplicatedHeartbeat, ""))
	_, err = m.ValidateUnsigned(ctx, validity.External, call)
	require.ErrorIs(err, validity.ErrStale)

	m.OnNewSession(ctx, 1, false, g.Authorities, g.Authorities)
	require.False(m.Received(ctx, 0, 1))
	_, err = m.ValidateUnsigned(ctx, validity.External, call)
	require.ErrorIs(err, validity.ErrStale)

	hb.Session = 1
	require.NoError(m.Dispatch(ctx, registry.None(), signedHeartbeat(t, validators[1], hb)))
	require.Len(sys.Events(ctx), 2)
}
