package babe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/executive"
	"github.com/rony4d/go-opera-runtime/integration"
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/modules/babe"
)

func newChain(t *testing.T) *integration.FakeChain {
	chain, err := integration.NewFakeChain(integration.LocalPreset(), integration.Host{})
	require.NoError(t, err)
	return chain
}

func TestCheckHeader(t *testing.T) {
	chain := newChain(t)
	_, _, err := chain.BuildBlock()
	require.NoError(t, err)

	tests := []struct {
		name  string
		claim func(c inter.SlotClaim) inter.SlotClaim
		err   error
	}{
		{"same slot", func(c inter.SlotClaim) inter.SlotClaim { c.Slot--; return c }, babe.ErrSlotNotIncreasing},
		{"unknown authority", func(c inter.SlotClaim) inter.SlotClaim { c.AuthorityIndex = 4; return c }, babe.ErrBadAuthority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, _, err := chain.Header()
			require.NoError(t, err)
			claim, err := header.SlotClaim()
			require.NoError(t, err)
			header.Digest = inter.Digest{tt.claim(claim).DigestItem()}

			err = chain.InitializeBlock(header)
			require.ErrorIs(t, err, executive.ErrBadHeader)
			require.Contains(t, err.Error(), tt.err.Error())
		})
	}

	header, _, err := chain.Header()
	require.NoError(t, err)
	header.Digest = nil
	require.ErrorIs(t, chain.InitializeBlock(header), executive.ErrBadHeader)
}

func TestSkippedSlots(t *testing.T) {
	require := require.New(t)
	chain := newChain(t)
	_, _, err := chain.BuildBlock()
	require.NoError(err)
	genesisSlot := chain.Slot()

	chain.SkipSlots(chain.Rules().Epochs.EpochDuration + 3)
	block, _, err := chain.BuildBlock()
	require.NoError(err)
	require.Equal(genesisSlot+chain.Rules().Epochs.EpochDuration+4, chain.Slot())

	_, ok := block.Header.Digest.Find(inter.DigestConsensus, inter.BabeEngine)
	require.True(ok)
	cur, err := chain.CurrentEpoch()
	require.NoError(err)
	require.EqualValues(1, cur.Epoch)
	require.True(cur.Contains(chain.Slot()))
}
