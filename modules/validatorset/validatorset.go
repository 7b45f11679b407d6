// Package validatorset keeps the membership that session rotation draws validators from.
package validatorset

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 10
	Name  = "ValidatorSet"
)

const (
	CallAddMember uint8 = iota
	CallRemoveMember
)

const MembershipWeight inter.Weight = 5000

// module error codes
const (
	codeAlreadyMember uint8 = iota
	codeNotMember
	codeTooMany
	codeBadArgs
)

var membersKey = []byte("m")

// AddMemberArgs are the arguments of add_member.
type AddMemberArgs struct {
	ID      idx.ValidatorID
	Account common.Address
	Weight  uint64
}

type Module struct {
	registry.Base
}

func New() *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage
}

func AddMemberCall(id idx.ValidatorID, account common.Address, weight uint64) inter.Call {
	return inter.MustCall(Index, CallAddMember, &AddMemberArgs{ID: id, Account: account, Weight: weight})
}

func RemoveMemberCall(id idx.ValidatorID) inter.Call {
	return inter.MustCall(Index, CallRemoveMember, uint32(id))
}

// Members returns the members in insertion order. Their keys are empty.
func (m *Module) Members(ctx *registry.Context) drivertype.Authorities {
	var out drivertype.Authorities
	m.Table(ctx).GetRLP(membersKey, &out)
	return out
}

func (m *Module) setMembers(ctx *registry.Context, members drivertype.Authorities) {
	m.Table(ctx).PutRLP(membersKey, members)
}

// Member looks up a member by id.
func (m *Module) Member(ctx *registry.Context, id idx.ValidatorID) (drivertype.Authority, bool) {
	members := m.Members(ctx)
	i, ok := members.ByID(id)
	if !ok {
		return drivertype.Authority{}, false
	}
	return members[i], true
}

// IsMember reports whether account belongs to a member.
func (m *Module) IsMember(ctx *registry.Context, account common.Address) bool {
	for _, a := range m.Members(ctx) {
		if a.Account == account {
			return true
		}
	}
	return false
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case CallAddMember, CallRemoveMember:
		return registry.DispatchInfo{Weight: MembershipWeight, Class: inter.Operational}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	if err := origin.EnsureRoot(); err != nil {
		return err
	}
	members := m.Members(ctx)
	switch call.Function {
	case CallAddMember:
		var args AddMemberArgs
		if err := call.Decode(&args); err != nil {
			return m.Error(codeBadArgs, err.Error())
		}
		if _, ok := members.ByID(args.ID); ok {
			return m.Error(codeAlreadyMember, "")
		}
		if uint32(len(members)) >= ctx.Rules.Epochs.MaxAuthorities {
			return m.Error(codeTooMany, "")
		}
		members = append(members, drivertype.Authority{ID: args.ID, Account: args.Account, Weight: args.Weight})
		m.setMembers(ctx, members)
		ctx.Emit(m.Event("MemberAdded", uint32(args.ID)))
		return nil
	case CallRemoveMember:
		var id uint32
		if err := call.Decode(&id); err != nil {
			return m.Error(codeBadArgs, err.Error())
		}
		i, ok := members.ByID(idx.ValidatorID(id))
		if !ok {
			return m.Error(codeNotMember, "")
		}
		m.setMembers(ctx, append(members[:i], members[i+1:]...))
		ctx.Emit(m.Event("MemberRemoved", id))
		return nil
	}
	return registry.ErrUnknownCall
}

func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	members := make(drivertype.Authorities, 0, len(g.Authorities))
	for _, a := range g.Authorities {
		members = append(members, drivertype.Authority{ID: a.ID, Account: a.Account, Weight: a.Weight})
	}
	m.setMembers(ctx, members)
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls: []registry.CallMetadata{
			{Index: CallAddMember, Name: "add_member", Args: []string{"id", "account", "weight"}},
			{Index: CallRemoveMember, Name: "remove_member", Args: []string{"id"}},
		},
		Storage: []string{"Members"},
		Events:  []string{"MemberAdded", "MemberRemoved"},
		Errors:  []string{"AlreadyMember", "NotMember", "TooMany", "BadArgs"},
	}
}
