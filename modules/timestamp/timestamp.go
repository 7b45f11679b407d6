// Package timestamp sets the block time from an inherent.
package timestamp

import (
	"errors"
	"fmt"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 1
	Name  = "Timestamp"
)

const (
	CallSet uint8 = iota
)

// SetWeight is the weight of the set inherent.
const SetWeight inter.Weight = 500

// InherentID names the host-supplied current time.
var InherentID = registry.InherentID{'t', 'i', 'm', 's', 't', 'a', 'p', '0'}

var (
	// ErrNotSet aborts a block which has no timestamp inherent.
	ErrNotSet = errors.New("timestamp must be set once per block")

	ErrMissingData = errors.New("no timestamp inherent data")
	ErrDrift       = errors.New("timestamp too far from the expected time")
)

// module error codes
const (
	codeAlreadySet uint8 = iota
	codeTooEarly
	codeBadArgs
)

var (
	nowKey       = []byte("n")
	didUpdateKey = []byte("u")
)

type Module struct {
	registry.Base
}

func New() *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage | registry.Inherent
}

// SetCall builds the set inherent.
func SetCall(now inter.Timestamp) inter.Call {
	return inter.MustCall(Index, CallSet, uint64(now))
}

// Now is the time of the current block.
func (m *Module) Now(ctx *registry.Context) inter.Timestamp {
	return inter.BytesToTimestamp(m.Table(ctx).GetBytes(nowKey))
}

// MinimumPeriod is the smallest allowed step between two block times.
func MinimumPeriod(ctx *registry.Context) inter.Timestamp {
	return ctx.Rules.Epochs.SlotDuration / 2
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case CallSet:
		return registry.DispatchInfo{Weight: SetWeight, Class: inter.Mandatory}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	switch call.Function {
	case CallSet:
		if err := origin.EnsureNone(); err != nil {
			return err
		}
		var now uint64
		if err := call.Decode(&now); err != nil {
			return m.Error(codeBadArgs, err.Error())
		}
		t := m.Table(ctx)
		if t.Contains(didUpdateKey) {
			return m.Error(codeAlreadySet, "")
		}
		prev := m.Now(ctx)
		if prev != 0 && inter.Timestamp(now) < prev+MinimumPeriod(ctx) {
			return m.Error(codeTooEarly, fmt.Sprintf("%d < %d", now, prev+MinimumPeriod(ctx)))
		}
		t.PutBytes(nowKey, inter.Timestamp(now).Bytes())
		t.PutBytes(didUpdateKey, []byte{1})
		return nil
	}
	return registry.ErrUnknownCall
}

// OnFinalize aborts the block if no set inherent was applied.
func (m *Module) OnFinalize(ctx *registry.Context) {
	t := m.Table(ctx)
	if !t.Contains(didUpdateKey) {
		panic(ErrNotSet)
	}
	t.Remove(didUpdateKey)
}

func (m *Module) CreateInherents(ctx *registry.Context, data registry.InherentData) ([]inter.Call, error) {
	now, err := hostTime(data)
	if err != nil {
		return nil, err
	}
	if prev := m.Now(ctx); prev != 0 {
		now = inter.MaxTimestamp(now, prev+MinimumPeriod(ctx))
	}
	return []inter.Call{SetCall(now)}, nil
}

func (m *Module) IsInherent(call inter.Call) bool {
	return call.Module == Index && call.Function == CallSet
}

// CheckInherent requires the included time to be within one slot of the host's time.
func (m *Module) CheckInherent(ctx *registry.Context, call inter.Call, data registry.InherentData) error {
	expected, err := hostTime(data)
	if err != nil {
		return err
	}
	var now uint64
	if err := call.Decode(&now); err != nil {
		return err
	}
	drift := inter.Timestamp(now) - expected
	if inter.Timestamp(now) < expected {
		drift = expected - inter.Timestamp(now)
	}
	if drift > ctx.Rules.Epochs.SlotDuration {
		return fmt.Errorf("%w: got %d, expected %d", ErrDrift, now, expected)
	}
	return nil
}

func hostTime(data registry.InherentData) (inter.Timestamp, error) {
	raw, ok := data[InherentID]
	if !ok {
		return 0, ErrMissingData
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrMissingData, len(raw))
	}
	return inter.BytesToTimestamp(raw), nil
}

// InherentData wraps a host time.
func InherentData(now inter.Timestamp) registry.InherentData {
	return registry.InherentData{InherentID: now.Bytes()}
}

func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	m.Table(ctx).PutBytes(nowKey, g.Time.Bytes())
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls:   []registry.CallMetadata{{Index: CallSet, Name: "set", Args: []string{"now"}}},
		Storage: []string{"Now", "DidUpdate"},
		Errors:  []string{"AlreadySet", "TooEarly", "BadArgs"},
	}
}
