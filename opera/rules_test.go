package opera

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/rony4d/go-opera-runtime/inter"
)

func TestNetworkConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant uint64
		want     uint64
	}{
		{"MainNetworkID", MainNetworkID, 0xfa},
		{"TestNetworkID", TestNetworkID, 0xfa2},
		{"FakeNetworkID", FakeNetworkID, 0xfa3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.constant, tt.want)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		rules     Rules
		name      string
		networkID uint64
		slot      inter.Timestamp
	}{
		{MainNetRules(), "main", MainNetworkID, inter.Timestamp(3 * time.Second)},
		{TestNetRules(), "test", TestNetworkID, inter.Timestamp(3 * time.Second)},
		{FakeNetRules(), "fake", FakeNetworkID, inter.Timestamp(1 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rules.Name != tt.name {
				t.Errorf("Name = %q, want %q", tt.rules.Name, tt.name)
			}
			if tt.rules.NetworkID != tt.networkID {
				t.Errorf("NetworkID = %d, want %d", tt.rules.NetworkID, tt.networkID)
			}
			if tt.rules.Epochs.SlotDuration != tt.slot {
				t.Errorf("SlotDuration = %v, want %v", tt.rules.Epochs.SlotDuration, tt.slot)
			}
			if tt.rules.Version.SpecVersion == 0 || tt.rules.Version.TxVersion == 0 {
				t.Errorf("versions must be set: %+v", tt.rules.Version)
			}
			if tt.rules.Blocks.BlockHashCount == 0 {
				t.Error("BlockHashCount must be positive")
			}
		})
	}
}

func TestFakeEconomyRules(t *testing.T) {
	e := FakeEconomyRules()
	one := big.NewInt(1)
	for name, v := range map[string]*big.Int{
		"BaseFee":      e.BaseFee,
		"PerByteFee":   e.PerByteFee,
		"PerWeightFee": e.PerWeightFee,
	} {
		if v.Cmp(one) != 0 {
			t.Errorf("%s = %s, want 1", name, v)
		}
	}
	if e.FeeAdjustment.MinMultiplier.Cmp(FixedOne) >= 0 {
		t.Errorf("MinMultiplier %s should be below 1.0", e.FeeAdjustment.MinMultiplier)
	}
	if e.FeeAdjustment.MaxMultiplier.Cmp(FixedOne) <= 0 {
		t.Errorf("MaxMultiplier %s should be above 1.0", e.FeeAdjustment.MaxMultiplier)
	}
}

func TestClassLimits(t *testing.T) {
	b := FakeBlocksRules()

	w, l := b.ClassLimits(inter.Normal)
	if w != 75000 || l != 655*75 {
		t.Errorf("normal limits = %d/%d", w, l)
	}
	w, l = b.ClassLimits(inter.Operational)
	if w != b.MaxBlockWeight || l != b.MaxBlockLength {
		t.Errorf("operational limits = %d/%d", w, l)
	}
	w, l = b.ClassLimits(inter.Mandatory)
	if w != math.MaxUint64 || l != math.MaxUint64 {
		t.Errorf("mandatory limits = %d/%d", w, l)
	}
}

func TestRulesCopy(t *testing.T) {
	original := FakeNetRules()
	cp := original.Copy()

	cp.Economy.BaseFee.SetInt64(1000)
	cp.Economy.FeeAdjustment.MaxMultiplier.SetInt64(5)

	if original.Economy.BaseFee.Int64() != 1 {
		t.Errorf("BaseFee shared between copies: %s", original.Economy.BaseFee)
	}
	if original.Economy.FeeAdjustment.MaxMultiplier.Cmp(FixedOne) <= 0 {
		t.Error("MaxMultiplier shared between copies")
	}
}

func TestRulesString(t *testing.T) {
	s := MainNetRules().String()

	var decoded Rules
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		t.Fatalf("String() is not valid JSON: %v", err)
	}
	if decoded.Name != "main" || decoded.Blocks.MaxBlockWeight != DefaultBlocksRules().MaxBlockWeight {
		t.Errorf("unexpected decoded rules: %+v", decoded)
	}
	if decoded.Economy.FeeAdjustment.MaxMultiplier.Cmp(DefaultFeeAdjustmentRules().MaxMultiplier) != 0 {
		t.Errorf("MaxMultiplier = %s", decoded.Economy.FeeAdjustment.MaxMultiplier)
	}
}
