package offences

import (
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iep"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/registry"
)

// ReportArgs are the arguments of an unsigned equivocation report.
type ReportArgs struct {
	Proof    []byte
	KeyOwner []byte
}

// DecodeReport decodes the report arguments of call.
func DecodeReport(call inter.Call) (inter.EquivocationProof, iep.KeyOwnershipProof, error) {
	var args ReportArgs
	if err := call.Decode(&args); err != nil {
		return inter.EquivocationProof{}, iep.KeyOwnershipProof{}, err
	}
	proof, err := inter.DecodeEquivocationProof(args.Proof)
	if err != nil {
		return inter.EquivocationProof{}, iep.KeyOwnershipProof{}, err
	}
	owner, err := iep.DecodeKeyOwnershipProof(args.KeyOwner)
	if err != nil {
		return inter.EquivocationProof{}, iep.KeyOwnershipProof{}, err
	}
	return proof, owner, nil
}

// ReportValidity is the pool verdict of a checked report of offence o.
// The verdict does not depend on where the report came from; a report is
// accepted once and is never gossiped.
func (m *Module) ReportValidity(ctx *registry.Context, _ validity.Source, o Offence) (validity.ValidTransaction, error) {
	if m.IsKnown(ctx, o) {
		return validity.ValidTransaction{}, validity.ErrStale
	}
	id := o.ID()
	return validity.ValidTransaction{
		Priority:  ctx.Rules.Pool.UnsignedPriority,
		Provides:  []validity.Tag{append(append(validity.Tag{}, o.Kind[:]...), id.Bytes()...)},
		Longevity: ctx.Rules.Epochs.ReportLongevity,
		Propagate: false,
	}, nil
}
