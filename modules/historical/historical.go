// Package historical remembers the membership of past sessions so that
// misbehaviour can be tied to the keys an authority held at the time.
package historical

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/iep"
	"github.com/rony4d/go-opera-runtime/inter/ier"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 13
	Name  = "Historical"
)

var (
	ErrUnknownSession = errors.New("session is not in the history")
	ErrRecordMismatch = errors.New("session record does not match the stored root")
)

const rootPrefix = 'r'

var currentKey = []byte("c")

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

func rootKey(session idx.Epoch) []byte {
	return append([]byte{rootPrefix}, session.Bytes()...)
}

// Record builds the session record of an authority set.
func Record(session idx.Epoch, validators drivertype.Authorities) ier.SessionRecord {
	r := ier.SessionRecord{Session: session, Members: make([]ier.Member, 0, len(validators))}
	for _, a := range validators {
		r.Members = append(r.Members, ier.Member{ID: a.ID, Keys: a.Keys.Copy()})
	}
	return r
}

// Root returns the stored record hash of a session.
func (m *Module) Root(ctx *registry.Context, session idx.Epoch) (hash.Hash, bool) {
	raw := m.Table(ctx).GetBytes(rootKey(session))
	if raw == nil {
		return hash.Zero, false
	}
	return hash.BytesToHash(raw), true
}

// Current is the record of the current session.
func (m *Module) Current(ctx *registry.Context) ier.SessionRecord {
	var r ier.SessionRecord
	m.Table(ctx).GetRLP(currentKey, &r)
	return r
}

func (m *Module) note(ctx *registry.Context, r ier.SessionRecord) {
	t := m.Table(ctx)
	t.PutRLP(currentKey, &r)
	t.PutBytes(rootKey(r.Session), r.Hash().Bytes())
	depth := idx.Epoch(ctx.Rules.Epochs.HistoryDepth)
	if r.Session >= depth {
		t.Remove(rootKey(r.Session - depth))
	}
}

func (m *Module) OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities) {
	m.note(ctx, Record(0, validators))
}

func (m *Module) OnNewSession(ctx *registry.Context, index idx.Epoch, _ bool, validators, _ drivertype.Authorities) {
	m.note(ctx, Record(index, validators))
}

// Prove builds an ownership proof of key pk in role kt against the current session.
func (m *Module) Prove(ctx *registry.Context, kt validatorpk.KeyType, pk validatorpk.PubKey) (iep.KeyOwnershipProof, bool) {
	r := m.Current(ctx)
	i, ok := r.Find(kt, pk)
	if !ok {
		return iep.KeyOwnershipProof{}, false
	}
	return iep.KeyOwnershipProof{Record: r, Index: i}, true
}

// Check verifies proof against the stored history and returns the member it points at.
func (m *Module) Check(ctx *registry.Context, proof iep.KeyOwnershipProof) (ier.Member, error) {
	root, ok := m.Root(ctx, proof.Record.Session)
	if !ok {
		return ier.Member{}, ErrUnknownSession
	}
	if root != proof.Record.Hash() {
		return ier.Member{}, ErrRecordMismatch
	}
	return proof.Member()
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{Storage: []string{"HistoricalSessions", "CurrentRecord"}}
}
