package balances

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func testContext(t *testing.T) (*Module, *system.Module, *registry.Context) {
	sys := system.New()
	m := New(sys)
	rules := opera.FakeNetRules()
	rules.Economy.ExistentialDeposit = big.NewInt(100)
	ctx := registry.NewContext(state.NewMemory().Begin(), &inter.Header{Number: 1}, &rules, nil, sys)
	require.NoError(t, m.BuildGenesis(ctx, &genesis.Genesis{Accounts: []genesis.Account{
		{Address: alice, Balance: big.NewInt(1000)},
	}}))
	return m, sys, ctx
}

func TestTransfer(t *testing.T) {
	require := require.New(t)
	m, sys, ctx := testContext(t)

	require.NoError(m.Dispatch(ctx, registry.Signed(alice), TransferCall(bob, big.NewInt(400))))
	require.Equal(big.NewInt(600), m.FreeBalance(ctx, alice))
	require.Equal(big.NewInt(400), m.FreeBalance(ctx, bob))
	require.Equal(big.NewInt(1000), m.TotalIssuance(ctx))

	events := sys.Events(ctx)
	require.Len(events, 1)
	require.Equal("Transfer", events[0].Event.Name)
	require.EqualValues(Index, events[0].Event.Module)
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		name  string
		from  registry.Origin
		dest  common.Address
		value int64
		err   error
	}{
		{"insufficient", registry.Signed(alice), bob, 1001, registry.NewModuleError(Index, codeInsufficientBalance, "")},
		{"sender dust", registry.Signed(alice), bob, 950, registry.NewModuleError(Index, codeExistentialDeposit, "")},
		{"receiver dust", registry.Signed(alice), bob, 50, registry.NewModuleError(Index, codeExistentialDeposit, "")},
		{"unsigned", registry.None(), bob, 1, registry.ErrBadOrigin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, ctx := testContext(t)
			err := m.Dispatch(ctx, tt.from, TransferCall(tt.dest, big.NewInt(tt.value)))
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, big.NewInt(1000), m.FreeBalance(ctx, alice))
		})
	}
}

func TestWholeBalanceMayLeave(t *testing.T) {
	require := require.New(t)
	m, _, ctx := testContext(t)

	require.NoError(m.Dispatch(ctx, registry.Signed(alice), TransferCall(bob, big.NewInt(1000))))
	require.Zero(m.FreeBalance(ctx, alice).Sign())
}

func TestSlash(t *testing.T) {
	require := require.New(t)
	m, _, ctx := testContext(t)

	require.Equal(big.NewInt(250), m.Slash(ctx, alice, 250000))
	require.Equal(big.NewInt(750), m.FreeBalance(ctx, alice))
	require.Equal(big.NewInt(750), m.TotalIssuance(ctx))

	require.Zero(m.Slash(ctx, bob, 250000).Sign())

	require.ErrorIs(m.Withdraw(ctx, alice, big.NewInt(751)), ErrInsufficientBalance)
}
