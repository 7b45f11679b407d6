package system

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

// PhaseKind is the stage of block execution an event was deposited in.
type PhaseKind uint8

const (
	Initialization PhaseKind = iota
	ApplyExtrinsic
	Finalization
)

type Phase struct {
	Kind PhaseKind
	// Extrinsic is the index of the extrinsic for ApplyExtrinsic.
	Extrinsic uint32
}

func (p Phase) String() string {
	switch p.Kind {
	case Initialization:
		return "initialization"
	case ApplyExtrinsic:
		return fmt.Sprintf("apply(%d)", p.Extrinsic)
	case Finalization:
		return "finalization"
	}
	return fmt.Sprintf("phase(%d)", uint8(p.Kind))
}

// EventRecord is an event with the phase it was deposited in.
type EventRecord struct {
	Phase Phase
	Event registry.Event
}

// ExtrinsicFailed is the data of the event recorded for a failed dispatch.
type ExtrinsicFailed struct {
	Kind  uint8
	Index uint8
	Code  uint8
	Info  registry.DispatchInfo
}

func (m *Module) Phase(ctx *registry.Context) Phase {
	var p Phase
	m.Table(ctx).GetRLP(phaseKey, &p)
	return p
}

func (m *Module) SetPhase(ctx *registry.Context, p Phase) {
	m.Table(ctx).PutRLP(phaseKey, &p)
}

// DepositEvent stores ev in the state of ctx. Events deposited into a
// discarded overlay vanish with it.
func (m *Module) DepositEvent(ctx *registry.Context, ev registry.Event) {
	t := m.Table(ctx)
	n := eventCount(t)
	t.PutRLP(eventKey(n), &EventRecord{Phase: m.Phase(ctx), Event: ev})
	t.PutBytes(eventCountKey, bigendian.Uint32ToBytes(n+1))
}

// eventCount is zero until the first event of a block.
func eventCount(t state.Table) uint32 {
	raw := t.GetBytes(eventCountKey)
	if len(raw) != 4 {
		return 0
	}
	return bigendian.BytesToUint32(raw)
}

// Events returns the events of the current block in deposit order.
func (m *Module) Events(ctx *registry.Context) []EventRecord {
	var out []EventRecord
	m.Table(ctx).ForEach([]byte{eventPrefix}, func(_, value []byte) bool {
		var rec EventRecord
		if err := rlp.DecodeBytes(value, &rec); err != nil {
			panic(fmt.Errorf("stored event: %w", err))
		}
		out = append(out, rec)
		return true
	})
	return out
}
