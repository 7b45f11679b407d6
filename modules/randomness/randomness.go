// Package randomness mixes recent parent hashes into a low-influence random seed.
package randomness

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 4
	Name  = "Randomness"
)

// RingSize is how many parent hashes are mixed.
const RingSize = 81

// InitializeWeight is charged on every block.
const InitializeWeight inter.Weight = 100

type Module struct {
	registry.Base
}

func New() *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}}
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

func slotKey(i uint32) []byte {
	return bigendian.Uint32ToBytes(i)
}

// OnInitialize stores the parent hash into the ring.
func (m *Module) OnInitialize(ctx *registry.Context) inter.Weight {
	n := ctx.Number()
	if n == 0 {
		return 0
	}
	i := uint32((uint64(n) - 1) % RingSize)
	m.Table(ctx).PutBytes(slotKey(i), ctx.Header.ParentHash.Bytes())
	return InitializeWeight
}

// Seed mixes the ring.
func (m *Module) Seed(ctx *registry.Context) hash.Hash {
	var parts [][]byte
	m.Table(ctx).ForEach(nil, func(_, value []byte) bool {
		parts = append(parts, append([]byte(nil), value...))
		return true
	})
	return inter.Blake2b256(parts...)
}

// Random derives a value for subject.
func (m *Module) Random(ctx *registry.Context, subject []byte) hash.Hash {
	return inter.Blake2b256(subject, m.Seed(ctx).Bytes())
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{Storage: []string{"RandomMaterial"}}
}
