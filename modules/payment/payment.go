// Package payment holds the fee multiplier and adjusts it to block fullness.
package payment

import (
	"math/big"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/validation"
)

const (
	Index = 3
	Name  = "TransactionPayment"
)

var multiplierKey = []byte("m")

type Module struct {
	registry.Base
	system *system.Module
}

func New(sys *system.Module) *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}, system: sys}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Storage
}

func (m *Module) Weigh(inter.Call) (registry.DispatchInfo, error) {
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(*registry.Context, registry.Origin, inter.Call) error {
	return registry.ErrUnknownCall
}

// Multiplier is the fee multiplier of the current block, 1e18 being 1.0.
func (m *Module) Multiplier(ctx *registry.Context) *big.Int {
	raw := m.Table(ctx).GetBytes(multiplierKey)
	if raw == nil {
		return new(big.Int).Set(opera.FixedOne)
	}
	return new(big.Int).SetBytes(raw)
}

func (m *Module) setMultiplier(ctx *registry.Context, v *big.Int) {
	m.Table(ctx).PutBytes(multiplierKey, v.Bytes())
}

// OnFinalize moves the multiplier towards the target fullness.
func (m *Module) OnFinalize(ctx *registry.Context) {
	normal := m.system.BlockState(ctx).Weight.Get(inter.Normal)
	next := validation.NextMultiplier(ctx.Rules, m.Multiplier(ctx), normal)
	m.setMultiplier(ctx, next)
}

func (m *Module) BuildGenesis(ctx *registry.Context, _ *genesis.Genesis) error {
	m.setMultiplier(ctx, opera.FixedOne)
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{Storage: []string{"NextFeeMultiplier"}}
}
