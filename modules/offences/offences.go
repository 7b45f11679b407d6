// Package offences records misbehaviour and punishes offenders exactly once per offence.
package offences

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/modules/balances"
	"github.com/rony4d/go-opera-runtime/modules/session"
	"github.com/rony4d/go-opera-runtime/modules/validatorset"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 9
	Name  = "Offences"
)

// Kind names an offence type.
type Kind [4]byte

var (
	SlotEquivocation = Kind{'b', 'a', 'b', 'e'}
	VoteEquivocation = Kind{'g', 'r', 'a', 'n'}
)

func (k Kind) String() string {
	return string(k[:])
}

// Offence identifies one instance of misbehaviour.
type Offence struct {
	Kind    Kind
	Session idx.Epoch
	// TimeSlot is the slot for block production offences, and the set id and round for finality offences.
	TimeSlot [2]uint64
	Offender idx.ValidatorID
}

// ID is the storage identity of the offence.
func (o Offence) ID() hash.Hash {
	raw, err := rlp.EncodeToBytes(&o)
	if err != nil {
		panic("can't encode offence: " + err.Error())
	}
	return inter.Blake2b256(raw)
}

const reportPrefix = 'r'

type Module struct {
	registry.Base
	balances *balances.Module
	session  *session.Module
	members  *validatorset.Module
}

func New(bal *balances.Module, sess *session.Module, members *validatorset.Module) *Module {
	return &Module{
		Base:     registry.Base{Idx: Index, ModuleName: Name},
		balances: bal,
		session:  sess,
		members:  members,
	}
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

func reportKey(o Offence) []byte {
	return append([]byte{reportPrefix}, o.ID().Bytes()...)
}

// IsKnown reports whether the offence was already punished.
func (m *Module) IsKnown(ctx *registry.Context, o Offence) bool {
	return m.Table(ctx).Contains(reportKey(o))
}

// Report punishes the offender unless the same offence is already known.
// It reports whether the offence was new.
func (m *Module) Report(ctx *registry.Context, o Offence) bool {
	if m.IsKnown(ctx, o) {
		return false
	}
	m.Table(ctx).PutRLP(reportKey(o), &o)

	log := ctx.Log.WithField("offender", o.Offender).WithField("kind", o.Kind.String())
	if member, ok := m.members.Member(ctx, o.Offender); ok {
		slashed := m.balances.Slash(ctx, member.Account, ctx.Rules.Economy.SlashPermill)
		log = log.WithField("slashed", slashed)
	}
	m.session.Disable(ctx, o.Offender, drivertype.DoublesignBit|drivertype.DisabledBit)
	log.Warn("Offence reported")

	ctx.Emit(m.Event("Offence", &o))
	return true
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Storage: []string{"Reports"},
		Events:  []string{"Offence"},
	}
}
