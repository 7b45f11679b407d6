package integration

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestDefaultPreset guards the baseline values: if they change, genesis hashes of
// every fake network change with them.
func TestDefaultPreset(t *testing.T) {
	cfg := DefaultPreset()

	if cfg.Name != "default" {
		t.Fatalf("Name = %q, want 'default'", cfg.Name)
	}
	if cfg.Validators != 1 {
		t.Fatalf("Validators = %d, want 1", cfg.Validators)
	}
	if cfg.Balance.Sign() <= 0 {
		t.Fatalf("Balance = %s, want positive", cfg.Balance)
	}
	if cfg.EnableMetrics {
		t.Fatal("EnableMetrics should be off by default")
	}
}

func TestGetPresetByName(t *testing.T) {
	tests := []struct {
		name       string
		validators int
		network    string
	}{
		{"default", 1, DefaultPreset().Rules.Name},
		{"dev", 1, DefaultPreset().Rules.Name},
		{"local", 4, DefaultPreset().Rules.Name},
		{"test", 3, TestPreset().Rules.Name},
		{"main", 3, MainPreset().Rules.Name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := GetPresetByName(tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.name, cfg.Name)
			require.Equal(t, tt.validators, cfg.Validators)
			require.Equal(t, tt.network, cfg.Rules.Name)
		})
	}

	for _, name := range []string{"", "lite", "DEV"} {
		_, err := GetPresetByName(name)
		require.Error(t, err, name)
	}
}

func TestApplyPreset(t *testing.T) {
	require := require.New(t)

	target := DefaultPreset()
	ApplyPreset(&target, LocalPreset())
	require.Equal("local", target.Name)
	require.Equal(4, target.Validators)
	require.True(target.EnableMetrics)

	// zero fields are skipped
	partial := PresetConfig{Validators: 2}
	ApplyPreset(&target, partial)
	require.Equal("local", target.Name)
	require.Equal(2, target.Validators)
	require.Equal(0, target.Balance.Cmp(LocalPreset().Balance))

	// the balance is copied, not aliased
	partial.Balance = big.NewInt(5)
	ApplyPreset(&target, partial)
	partial.Balance.SetInt64(6)
	require.Equal(big.NewInt(5), target.Balance)
}

func TestPresetGenesisIsDeterministic(t *testing.T) {
	require := require.New(t)

	a, va := LocalPreset().Genesis()
	b, vb := LocalPreset().Genesis()
	require.NoError(a.Validate())
	require.Equal(a.Hash(), b.Hash())
	require.Len(va, 4)
	require.Empty(cmp.Diff(a.Authorities, b.Authorities))
	for i := range va {
		require.Equal(va[i].Account.D, vb[i].Account.D)
	}

	other, _ := TestPreset().Genesis()
	require.NotEqual(a.Hash(), other.Hash())
}
