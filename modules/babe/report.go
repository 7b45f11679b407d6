package babe

import (
	"errors"
	"fmt"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iep"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/offences"
	"github.com/rony4d/go-opera-runtime/registry"
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
	ErrWrongSession = errors.New("equivocation slot is not in the proven session")
	ErrNotOwner     = errors.New("key ownership proof is for another key")
)

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

// offence checks the report and identifies the offence it proves.
func (m *Module) offence(ctx *registry.Context, call inter.Call) (offences.Offence, uint8, error) {
	proof, owner, err := offences.DecodeReport(call)
	if err != nil {
		return offences.Offence{}, codeInvalidProof, err
	}
	if proof.Slot == nil {
		return offences.Offence{}, codeInvalidProof, inter.ErrMalformedProof
	}
	if err := proof.Slot.Check(); err != nil {
		return offences.Offence{}, codeInvalidProof, err
	}
	member, err := m.historical.Check(ctx, owner)
	if err != nil {
		return offences.Offence{}, codeInvalidKeyOwnership, err
	}
	if !owner.Owns(validatorpk.Babe, proof.Slot.Offender) {
		return offences.Offence{}, codeInvalidKeyOwnership, ErrNotOwner
	}
	epoch, ok := m.EpochOf(ctx, proof.Slot.Slot)
	if !ok || epoch != owner.Record.Session {
		return offences.Offence{}, codeInvalidProof, ErrWrongSession
	}
	return offences.Offence{
		Kind:     offences.SlotEquivocation,
		Session:  owner.Record.Session,
		TimeSlot: [2]uint64{proof.Slot.Slot, 0},
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

// ValidateUnsigned admits reports which prove a new offence.
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
