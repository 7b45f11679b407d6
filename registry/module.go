// Package registry composes runtime modules into one dispatch table.
package registry

import (
	"strings"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/state"
)

// Capabilities flag what a module provides.
type Capabilities uint8

const (
	Calls Capabilities = 1 << iota
	Storage
	Inherent
	ValidateUnsigned
	Offchain
)

var capabilityNames = []struct {
	c    Capabilities
	name string
}{
	{Calls, "calls"},
	{Storage, "storage"},
	{Inherent, "inherent"},
	{ValidateUnsigned, "validate-unsigned"},
	{Offchain, "offchain-worker"},
}

func (c Capabilities) Has(o Capabilities) bool {
	return c&o == o
}

// Names lists the set flags.
func (c Capabilities) Names() []string {
	var out []string
	for _, cn := range capabilityNames {
		if c.Has(cn.c) {
			out = append(out, cn.name)
		}
	}
	return out
}

func (c Capabilities) String() string {
	return strings.Join(c.Names(), "|")
}

// DispatchInfo is what the runtime knows about a call before executing it.
type DispatchInfo struct {
	Weight  inter.Weight
	Class   inter.DispatchClass
	PaysFee bool
}

// Module is a unit of state and call logic registered at a fixed index.
type Module interface {
	Index() uint8
	Name() string
	Capabilities() Capabilities

	// Weigh declares the cost of a call. Unknown functions yield ErrUnknownCall.
	Weigh(call inter.Call) (DispatchInfo, error)
	// Dispatch executes a call. Writes of a failed call are rolled back by the caller.
	Dispatch(ctx *Context, origin Origin, call inter.Call) error

	// OnInitialize runs at block start in ascending index order and returns the weight consumed.
	OnInitialize(ctx *Context) inter.Weight
	// OnFinalize runs at block end in descending index order.
	OnFinalize(ctx *Context)

	Metadata() ModuleMetadata
}

// InherentID names a piece of host-supplied inherent data.
type InherentID [8]byte

func (id InherentID) String() string {
	return string(id[:])
}

// InherentData is host-supplied data that block authors turn into inherent extrinsics.
type InherentData map[InherentID][]byte

// InherentProvider is implemented by modules with the Inherent capability.
type InherentProvider interface {
	// CreateInherents builds the module's inherent calls for the next block.
	CreateInherents(ctx *Context, data InherentData) ([]inter.Call, error)
	// IsInherent reports whether call is one of the module's inherents.
	IsInherent(call inter.Call) bool
	// CheckInherent cross-checks an included inherent against the host's data.
	CheckInherent(ctx *Context, call inter.Call, data InherentData) error
}

// UnsignedValidator is implemented by modules with the ValidateUnsigned capability.
type UnsignedValidator interface {
	ValidateUnsigned(ctx *Context, source validity.Source, call inter.Call) (validity.ValidTransaction, error)
}

// Keystore gives offchain workers access to local session keys.
type Keystore interface {
	Keys(kt validatorpk.KeyType) []validatorpk.PubKey
	Sign(kt validatorpk.KeyType, pk validatorpk.PubKey, digest []byte) ([]byte, error)
}

// TransactionPool accepts extrinsics produced outside of block execution.
type TransactionPool interface {
	SubmitExtrinsic(xt *inter.Extrinsic) error
}

// OffchainContext extends Context with host services. Its state is a disposable snapshot.
type OffchainContext struct {
	*Context
	Keystore Keystore
	Pool     TransactionPool
}

// OffchainWorker is implemented by modules with the Offchain capability.
type OffchainWorker interface {
	OffchainWorker(ctx *OffchainContext, header *inter.Header) error
}

// HeaderChecker is implemented by modules which validate the header of a block before it is initialized.
type HeaderChecker interface {
	CheckHeader(ctx *Context, header *inter.Header) error
}

// Base carries the identity of a module and no-op hooks.
type Base struct {
	Idx        uint8
	ModuleName string
}

func (b Base) Index() uint8 {
	return b.Idx
}

func (b Base) Name() string {
	return b.ModuleName
}

func (b Base) OnInitialize(*Context) inter.Weight {
	return 0
}

func (b Base) OnFinalize(*Context) {}

// Table returns the module's key space.
func (b Base) Table(ctx *Context) state.Table {
	return ctx.Table(b.ModuleName)
}

// Error builds a module error.
func (b Base) Error(code uint8, msg string) *DispatchError {
	return NewModuleError(b.Idx, code, msg)
}

// Event builds an event of the module.
func (b Base) Event(name string, data interface{}) Event {
	return NewEvent(b.Idx, name, data)
}
