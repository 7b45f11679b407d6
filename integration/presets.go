package integration

import (
	"fmt"
	"math/big"

	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
)

// PresetConfig bundles the network rules with the settings of a local chain
// built on them. Fake validator keys are derived deterministically, so every
// node using the same preset computes the same genesis.
type PresetConfig struct {
	Name  string
	Rules opera.Rules
	// Validators is the number of fake genesis validators.
	Validators int
	// Balance endows every fake validator account.
	Balance       *big.Int
	EnableMetrics bool
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:       "default",
		Rules:      opera.FakeNetRules(),
		Validators: 1,
		Balance:    new(big.Int).Mul(big.NewInt(1000000), opera.FixedOne),
	}
}

// DevPreset is a single validator chain with metrics on.
func DevPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "dev"
	cfg.EnableMetrics = true
	return cfg
}

// LocalPreset is a fake network of four validators.
func LocalPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "local"
	cfg.Validators = 4
	cfg.EnableMetrics = true
	return cfg
}

// TestPreset runs the test network rules.
func TestPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "test"
	cfg.Rules = opera.TestNetRules()
	cfg.Validators = 3
	cfg.EnableMetrics = true
	return cfg
}

// MainPreset runs the main network rules.
func MainPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "main"
	cfg.Rules = opera.MainNetRules()
	cfg.Validators = 3
	cfg.EnableMetrics = true
	return cfg
}

// GetPresetByName looks up a preset by name.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "dev":
		return DevPreset(), nil
	case "local":
		return LocalPreset(), nil
	case "test":
		return TestPreset(), nil
	case "main":
		return MainPreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: dev, local, test, main, default)", name)
	}
}

// ApplyPreset merges preset into target. Zero fields of preset are skipped.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Validators > 0 {
		target.Validators = preset.Validators
	}
	if preset.Balance != nil {
		target.Balance = new(big.Int).Set(preset.Balance)
	}
	if preset.Rules.Name != "" {
		target.Rules = preset.Rules
	}
	target.EnableMetrics = preset.EnableMetrics
	if preset.Name != "" {
		target.Name = preset.Name
	}
}

// Genesis builds the fake genesis of the preset.
func (p PresetConfig) Genesis() (genesis.Genesis, []genesis.FakeValidator) {
	return genesis.FakeGenesis(p.Rules, p.Validators, p.Balance)
}
