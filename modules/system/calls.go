package system

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	CallRemark uint8 = iota
)

// RemarkWeight is the weight of a remark, plus one per byte.
const RemarkWeight inter.Weight = 1000

const (
	errBadArgs uint8 = iota
)

// Remarked is emitted for every remark.
type Remarked struct {
	Sender common.Address
	Hash   [32]byte
}

// Remark builds a remark call.
func Remark(data []byte) inter.Call {
	return inter.MustCall(Index, CallRemark, data)
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case CallRemark:
		return registry.DispatchInfo{
			Weight:  RemarkWeight + inter.Weight(len(call.Args)),
			Class:   inter.Normal,
			PaysFee: true,
		}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	switch call.Function {
	case CallRemark:
		sender, err := origin.EnsureSigned()
		if err != nil {
			return err
		}
		var data []byte
		if err := call.Decode(&data); err != nil {
			return m.Error(errBadArgs, err.Error())
		}
		ctx.Emit(m.Event("Remarked", &Remarked{Sender: sender, Hash: inter.Blake2b256(data)}))
		return nil
	}
	return registry.ErrUnknownCall
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls:   []registry.CallMetadata{{Index: CallRemark, Name: "remark", Args: []string{"bytes"}}},
		Storage: []string{"Account", "BlockHash", "GenesisHash", "Number", "ParentHash", "BlockState", "Events", "Digest"},
		Events:  []string{"ExtrinsicSuccess", "ExtrinsicFailed", "Remarked"},
		Errors:  []string{"BadArgs"},
	}
}
