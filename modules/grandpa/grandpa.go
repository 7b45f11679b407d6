// Package grandpa tracks the finality authority set and accepts reports of
// authorities casting two votes in one round.
package grandpa

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/iep"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/historical"
	"github.com/rony4d/go-opera-runtime/modules/offences"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 6
	Name  = "Grandpa"
)

const CallReportEquivocation uint8 = 0

const ReportWeight inter.Weight = 20000

// module error codes
const (
	codeInvalidProof uint8 = iota
	codeInvalidKeyOwnership
	codeDuplicateReport
)

var (
	ErrUnknownSetID = errors.New("authority set id is not in the history")
	ErrWrongSession = errors.New("authority set is not of the proven session")
	ErrNotOwner     = errors.New("key ownership proof is for another key")
)

var (
	authoritiesKey = []byte("a")
	setIDKey       = []byte("s")
)

const setSessionPrefix = 'x'

// Authority is a weighted finality voter.
type Authority struct {
	Key    validatorpk.PubKey
	Weight uint64
}

// ScheduledChange is the consensus log announcing a new authority set.
type ScheduledChange struct {
	Authorities []Authority
	Delay       uint64
}

func (c ScheduledChange) DigestItem() inter.DigestItem {
	data, _ := rlp.EncodeToBytes(&c)
	return inter.DigestItem{Kind: inter.DigestConsensus, Engine: inter.GrandpaEngine, Data: data}
}

type Module struct {
	registry.Base
	system     *system.Module
	historical *historical.Module
	offences   *offences.Module
}

func New(sys *system.Module, hist *historical.Module, off *offences.Module) *Module {
	return &Module{
		Base:       registry.Base{Idx: Index, ModuleName: Name},
		system:     sys,
		historical: hist,
		offences:   off,
	}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage | registry.ValidateUnsigned
}

func setSessionKey(setID uint64) []byte {
	return append([]byte{setSessionPrefix}, bigendian.Uint64ToBytes(setID)...)
}

// Authorities is the current finality authority set.
func (m *Module) Authorities(ctx *registry.Context) []Authority {
	var out []Authority
	m.Table(ctx).GetRLP(authoritiesKey, &out)
	return out
}

// CurrentSetID counts authority set changes.
func (m *Module) CurrentSetID(ctx *registry.Context) uint64 {
	raw := m.Table(ctx).GetBytes(setIDKey)
	if raw == nil {
		return 0
	}
	return bigendian.BytesToUint64(raw)
}

// SessionOf returns the session in which the authority set setID was active.
func (m *Module) SessionOf(ctx *registry.Context, setID uint64) (idx.Epoch, bool) {
	raw := m.Table(ctx).GetBytes(setSessionKey(setID))
	if raw == nil {
		return 0, false
	}
	return idx.BytesToEpoch(raw), true
}

func finalityAuthorities(as drivertype.Authorities) []Authority {
	out := make([]Authority, 0, len(as))
	for _, a := range as {
		if key, ok := a.Keys.Get(validatorpk.Grandpa); ok {
			out = append(out, Authority{Key: key.Copy(), Weight: a.Weight})
		}
	}
	return out
}

func (m *Module) OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities) {
	t := m.Table(ctx)
	t.PutRLP(authoritiesKey, finalityAuthorities(validators))
	t.PutBytes(setIDKey, bigendian.Uint64ToBytes(0))
	t.PutBytes(setSessionKey(0), idx.Epoch(0).Bytes())
}

// OnNewSession enacts a new authority set if the validators changed.
func (m *Module) OnNewSession(ctx *registry.Context, index idx.Epoch, changed bool, validators, _ drivertype.Authorities) {
	t := m.Table(ctx)
	setID := m.CurrentSetID(ctx)
	if changed {
		setID++
		next := finalityAuthorities(validators)
		t.PutRLP(authoritiesKey, next)
		t.PutBytes(setIDKey, bigendian.Uint64ToBytes(setID))
		m.system.DepositLog(ctx, ScheduledChange{Authorities: next}.DigestItem())
		ctx.Log.WithField("set", setID).WithField("authorities", len(next)).Info("Finality authority set changed")
	}
	// the set spans several sessions if validators did not change
	t.PutBytes(setSessionKey(setID), index.Bytes())
}

// ReportEquivocationCall builds an unsigned equivocation report.
func ReportEquivocationCall(proof inter.EquivocationProof, owner iep.KeyOwnershipProof) (inter.Call, error) {
	rawProof, err := proof.Encode()
	if err != nil {
		return inter.Call{}, err
	}
	rawOwner, err := owner.Encode()
	if err != nil {
		return inter.Call{}, err
	}
	return inter.NewCall(Index, CallReportEquivocation, &offences.ReportArgs{Proof: rawProof, KeyOwner: rawOwner})
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	if call.Function == CallReportEquivocation {
		return registry.DispatchInfo{Weight: ReportWeight, Class: inter.Operational}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) offence(ctx *registry.Context, call inter.Call) (offences.Offence, uint8, error) {
	proof, owner, err := offences.DecodeReport(call)
	if err != nil {
		return offences.Offence{}, codeInvalidProof, err
	}
	eq := proof.Vote
	if eq == nil {
		return offences.Offence{}, codeInvalidProof, inter.ErrMalformedProof
	}
	if err := eq.Check(); err != nil {
		return offences.Offence{}, codeInvalidProof, err
	}
	member, err := m.historical.Check(ctx, owner)
	if err != nil {
		return offences.Offence{}, codeInvalidKeyOwnership, err
	}
	if !owner.Owns(validatorpk.Grandpa, eq.Offender) {
		return offences.Offence{}, codeInvalidKeyOwnership, ErrNotOwner
	}
	session, ok := m.SessionOf(ctx, eq.SetID)
	if !ok {
		return offences.Offence{}, codeInvalidProof, ErrUnknownSetID
	}
	if session != owner.Record.Session {
		return offences.Offence{}, codeInvalidProof, ErrWrongSession
	}
	return offences.Offence{
		Kind:     offences.VoteEquivocation,
		Session:  session,
		TimeSlot: [2]uint64{eq.SetID, eq.Round},
		Offender: member.ID,
	}, 0, nil
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	if call.Function != CallReportEquivocation {
		return registry.ErrUnknownCall
	}
	if err := origin.EnsureNone(); err != nil {
		return err
	}
	o, code, err := m.offence(ctx, call)
	if err != nil {
		return m.Error(code, err.Error())
	}
	if !m.offences.Report(ctx, o) {
		return m.Error(codeDuplicateReport, "")
	}
	return nil
}

func (m *Module) ValidateUnsigned(ctx *registry.Context, source validity.Source, call inter.Call) (validity.ValidTransaction, error) {
	if call.Function != CallReportEquivocation {
		return validity.ValidTransaction{}, validity.ErrCall
	}
	o, _, err := m.offence(ctx, call)
	if err != nil {
		return validity.ValidTransaction{}, fmt.Errorf("%w: %v", validity.ErrBadProof, err)
	}
	return m.offences.ReportValidity(ctx, source, o)
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls: []registry.CallMetadata{
			{Index: CallReportEquivocation, Name: "report_equivocation_unsigned", Args: []string{"proof", "key_owner_proof"}},
		},
		Storage: []string{"Authorities", "CurrentSetId", "SetIdSession"},
		Errors:  []string{"InvalidEquivocationProof", "InvalidKeyOwnershipProof", "DuplicateOffenceReport"},
	}
}
