// Package balances moves funds between accounts and takes fees and penalties.
package balances

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 2
	Name  = "Balances"
)

const (
	CallTransfer uint8 = iota
)

// TransferWeight is the weight of a transfer.
const TransferWeight inter.Weight = 2000

// module error codes
const (
	codeInsufficientBalance uint8 = iota
	codeExistentialDeposit
	codeBadArgs
)

var ErrInsufficientBalance = errors.New("insufficient balance")

var totalIssuanceKey = []byte("i")

// TransferArgs are the arguments of a transfer.
type TransferArgs struct {
	Dest  common.Address
	Value *big.Int
}

// Transfer is the data of the Transfer event.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Slashed is the data of the Slashed event.
type Slashed struct {
	Who    common.Address
	Amount *big.Int
}

type Module struct {
	registry.Base
	system *system.Module
}

func New(sys *system.Module) *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}, system: sys}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage
}

// TransferCall builds a transfer call.
func TransferCall(dest common.Address, value *big.Int) inter.Call {
	return inter.MustCall(Index, CallTransfer, &TransferArgs{Dest: dest, Value: value})
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case CallTransfer:
		return registry.DispatchInfo{Weight: TransferWeight, Class: inter.Normal, PaysFee: true}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	switch call.Function {
	case CallTransfer:
		from, err := origin.EnsureSigned()
		if err != nil {
			return err
		}
		var args TransferArgs
		if err := call.Decode(&args); err != nil || args.Value == nil {
			return m.Error(codeBadArgs, "transfer args")
		}
		return m.transfer(ctx, from, args.Dest, args.Value)
	}
	return registry.ErrUnknownCall
}

func (m *Module) transfer(ctx *registry.Context, from, to common.Address, value *big.Int) error {
	ed := ctx.Rules.Economy.ExistentialDeposit
	src := m.system.Account(ctx, from)
	if src.Free.Cmp(value) < 0 {
		return m.Error(codeInsufficientBalance, "")
	}
	left := new(big.Int).Sub(src.Free, value)
	if left.Sign() != 0 && left.Cmp(ed) < 0 {
		return m.Error(codeExistentialDeposit, "sender would fall below existential deposit")
	}
	dst := m.system.Account(ctx, to)
	total := new(big.Int).Add(dst.Free, value)
	if total.Sign() != 0 && total.Cmp(ed) < 0 {
		return m.Error(codeExistentialDeposit, "receiver would stay below existential deposit")
	}
	if from == to {
		return nil
	}
	src.Free = left
	m.system.SetAccount(ctx, from, src)
	dst.Free = total
	m.system.SetAccount(ctx, to, dst)
	ctx.Emit(m.Event("Transfer", &Transfer{From: from, To: to, Value: value}))
	return nil
}

// FreeBalance of addr.
func (m *Module) FreeBalance(ctx *registry.Context, addr common.Address) *big.Int {
	return m.system.Account(ctx, addr).Free
}

// TotalIssuance is the sum of all balances.
func (m *Module) TotalIssuance(ctx *registry.Context) *big.Int {
	return new(big.Int).SetBytes(m.Table(ctx).GetBytes(totalIssuanceKey))
}

func (m *Module) setTotalIssuance(ctx *registry.Context, v *big.Int) {
	m.Table(ctx).PutBytes(totalIssuanceKey, v.Bytes())
}

// Withdraw burns amount from addr.
func (m *Module) Withdraw(ctx *registry.Context, addr common.Address, amount *big.Int) error {
	acc := m.system.Account(ctx, addr)
	if acc.Free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc.Free = new(big.Int).Sub(acc.Free, amount)
	m.system.SetAccount(ctx, addr, acc)
	m.setTotalIssuance(ctx, new(big.Int).Sub(m.TotalIssuance(ctx), amount))
	return nil
}

// Deposit mints amount into addr.
func (m *Module) Deposit(ctx *registry.Context, addr common.Address, amount *big.Int) {
	acc := m.system.Account(ctx, addr)
	acc.Free = new(big.Int).Add(acc.Free, amount)
	m.system.SetAccount(ctx, addr, acc)
	m.setTotalIssuance(ctx, new(big.Int).Add(m.TotalIssuance(ctx), amount))
}

// Slash burns the permill share of the free balance of addr and returns the burnt amount.
func (m *Module) Slash(ctx *registry.Context, addr common.Address, permill uint32) *big.Int {
	free := m.FreeBalance(ctx, addr)
	amount := new(big.Int).Mul(free, new(big.Int).SetUint64(uint64(permill)))
	amount.Quo(amount, big.NewInt(1000000))
	if amount.Sign() == 0 {
		return amount
	}
	_ = m.Withdraw(ctx, addr, amount)
	ctx.Emit(m.Event("Slashed", &Slashed{Who: addr, Amount: amount}))
	return amount
}

// BuildGenesis endows the genesis accounts.
func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	for _, acc := range g.Accounts {
		m.Deposit(ctx, acc.Address, acc.Balance)
	}
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls:   []registry.CallMetadata{{Index: CallTransfer, Name: "transfer", Args: []string{"dest", "value"}}},
		Storage: []string{"TotalIssuance"},
		Events:  []string{"Transfer", "Slashed"},
		Errors:  []string{"InsufficientBalance", "ExistentialDeposit", "BadArgs"},
	}
}
