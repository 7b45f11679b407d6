// Package discovery publishes the keys authorities use to find each other on the network.
package discovery

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 14
	Name  = "AuthorityDiscovery"
)

var (
	currentKey = []byte("c")
	nextKey    = []byte("n")
)

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

func discoveryKeys(as drivertype.Authorities) []validatorpk.PubKey {
	out := make([]validatorpk.PubKey, 0, len(as))
	for _, a := range as {
		if key, ok := a.Keys.Get(validatorpk.AuthorityDiscovery); ok {
			out = append(out, key.Copy())
		}
	}
	return out
}

func (m *Module) keys(ctx *registry.Context, key []byte) []validatorpk.PubKey {
	var out []validatorpk.PubKey
	m.Table(ctx).GetRLP(key, &out)
	return out
}

// Current keys of the active validators.
func (m *Module) Current(ctx *registry.Context) []validatorpk.PubKey {
	return m.keys(ctx, currentKey)
}

// Next keys of the queued validators.
func (m *Module) Next(ctx *registry.Context) []validatorpk.PubKey {
	return m.keys(ctx, nextKey)
}

// Authorities is the union of current and next keys, current first, without duplicates.
func (m *Module) Authorities(ctx *registry.Context) []validatorpk.PubKey {
	cur := m.Current(ctx)
	out := make([]validatorpk.PubKey, 0, len(cur))
	seen := make(map[string]bool, len(cur))
	for _, k := range append(cur, m.Next(ctx)...) {
		if seen[string(k.Bytes())] {
			continue
		}
		seen[string(k.Bytes())] = true
		out = append(out, k)
	}
	return out
}

func (m *Module) OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities) {
	t := m.Table(ctx)
	keys := discoveryKeys(validators)
	t.PutRLP(currentKey, keys)
	t.PutRLP(nextKey, keys)
}

func (m *Module) OnNewSession(ctx *registry.Context, _ idx.Epoch, _ bool, validators, queued drivertype.Authorities) {
	t := m.Table(ctx)
	t.PutRLP(currentKey, discoveryKeys(validators))
	t.PutRLP(nextKey, discoveryKeys(queued))
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{Storage: []string{"Keys", "NextKeys"}}
}
