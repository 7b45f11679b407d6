// Package session rotates the validator set and manages the session keys of validators.
//
// Keys registered during session n are queued at the end of n and become
// active at the start of n+1. Rotation is triggered by block production.
package session

import (
	"bytes"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 12
	Name  = "Session"
)

const (
	CallSetKeys uint8 = iota
	CallPurgeKeys
)

const (
	SetKeysWeight inter.Weight = 10000
	RotateWeight  inter.Weight = 50000
)

// module error codes
const (
	codeNotValidator uint8 = iota
	codeDuplicatedKey
	codeNoKeys
	codeBadArgs
)

var (
	indexKey     = []byte("i")
	validatorKey = []byte("v")
	queuedKey    = []byte("q")
	changedKey   = []byte("c")
)

const (
	nextKeysPrefix = 'k'
	ownerPrefix    = 'o'
)

// Handler is notified about session changes.
type Handler interface {
	// OnGenesisSession is called once with the validators of session zero.
	OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities)
	// OnNewSession is called when session index starts with validators.
	// changed reports whether validators differ from the previous session.
	OnNewSession(ctx *registry.Context, index idx.Epoch, changed bool, validators, queued drivertype.Authorities)
}

// Trigger decides when a session ends.
type Trigger interface {
	ShouldEndSession(ctx *registry.Context) bool
}

// Members is where queued validators come from.
type Members interface {
	Members(ctx *registry.Context) drivertype.Authorities
	IsMember(ctx *registry.Context, account common.Address) bool
}

type Module struct {
	registry.Base
	members  Members
	trigger  Trigger
	handlers []Handler
}

func New(members Members) *Module {
	return &Module{
		Base:    registry.Base{Idx: Index, ModuleName: Name},
		members: members,
	}
}

// Attach sets the session trigger and the handlers, in notification order.
// It must be called before the module is used.
func (m *Module) Attach(trigger Trigger, handlers ...Handler) {
	m.trigger = trigger
	m.handlers = handlers
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage
}

// SetKeysCall builds a set_keys call.
func SetKeysCall(keys validatorpk.SessionKeys) (inter.Call, error) {
	raw, err := keys.Encode()
	if err != nil {
		return inter.Call{}, err
	}
	return inter.NewCall(Index, CallSetKeys, raw)
}

func PurgeKeysCall() inter.Call {
	return inter.MustCall(Index, CallPurgeKeys, nil)
}

func nextKeysKey(account common.Address) []byte {
	return append([]byte{nextKeysPrefix}, account.Bytes()...)
}

func ownerKey(kt validatorpk.KeyType, pk validatorpk.PubKey) []byte {
	key := append([]byte{ownerPrefix}, kt[:]...)
	return append(key, pk.Bytes()...)
}

// CurrentIndex is the index of the current session.
func (m *Module) CurrentIndex(ctx *registry.Context) idx.Epoch {
	return idx.BytesToEpoch(m.Table(ctx).GetBytes(indexKey))
}

// Validators of the current session.
func (m *Module) Validators(ctx *registry.Context) drivertype.Authorities {
	var out drivertype.Authorities
	m.Table(ctx).GetRLP(validatorKey, &out)
	return out
}

// Queued validators of the next session.
func (m *Module) Queued(ctx *registry.Context) drivertype.Authorities {
	var out drivertype.Authorities
	m.Table(ctx).GetRLP(queuedKey, &out)
	return out
}

// NextKeys returns the keys registered by account.
func (m *Module) NextKeys(ctx *registry.Context, account common.Address) (validatorpk.SessionKeys, bool) {
	var keys validatorpk.SessionKeys
	ok := m.Table(ctx).GetRLP(nextKeysKey(account), &keys)
	return keys, ok
}

// KeyOwner returns the account which registered pk for role kt.
func (m *Module) KeyOwner(ctx *registry.Context, kt validatorpk.KeyType, pk validatorpk.PubKey) (common.Address, bool) {
	raw := m.Table(ctx).GetBytes(ownerKey(kt, pk))
	if raw == nil {
		return common.Address{}, false
	}
	return common.BytesToAddress(raw), true
}

// Disable sets status bits of a current validator. It reports whether anything changed.
func (m *Module) Disable(ctx *registry.Context, id idx.ValidatorID, status uint64) bool {
	validators := m.Validators(ctx)
	i, ok := validators.ByID(id)
	if !ok || validators[i].Status&status == status {
		return false
	}
	validators[i].Status |= status
	m.Table(ctx).PutRLP(validatorKey, validators)
	ctx.Emit(m.Event("ValidatorDisabled", uint32(id)))
	return true
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	switch call.Function {
	case CallSetKeys, CallPurgeKeys:
		return registry.DispatchInfo{Weight: SetKeysWeight, Class: inter.Normal, PaysFee: true}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	who, err := origin.EnsureSigned()
	if err != nil {
		return err
	}
	switch call.Function {
	case CallSetKeys:
		var raw []byte
		if err := call.Decode(&raw); err != nil {
			return m.Error(codeBadArgs, err.Error())
		}
		keys, err := validatorpk.DecodeSessionKeys(raw)
		if err != nil {
			return m.Error(codeBadArgs, err.Error())
		}
		if !m.members.IsMember(ctx, who) {
			return m.Error(codeNotValidator, "")
		}
		return m.setKeys(ctx, who, keys)
	case CallPurgeKeys:
		old, ok := m.NextKeys(ctx, who)
		if !ok {
			return m.Error(codeNoKeys, "")
		}
		m.clearOwners(ctx, old)
		m.Table(ctx).Remove(nextKeysKey(who))
		return nil
	}
	return registry.ErrUnknownCall
}

func (m *Module) setKeys(ctx *registry.Context, who common.Address, keys validatorpk.SessionKeys) error {
	for _, tk := range keys.Typed() {
		if owner, ok := m.KeyOwner(ctx, tk.Type, tk.Key); ok && owner != who {
			return m.Error(codeDuplicatedKey, tk.Type.String())
		}
	}
	if old, ok := m.NextKeys(ctx, who); ok {
		m.clearOwners(ctx, old)
	}
	t := m.Table(ctx)
	for _, tk := range keys.Typed() {
		t.PutBytes(ownerKey(tk.Type, tk.Key), who.Bytes())
	}
	t.PutRLP(nextKeysKey(who), &keys)
	return nil
}

func (m *Module) clearOwners(ctx *registry.Context, keys validatorpk.SessionKeys) {
	t := m.Table(ctx)
	for _, tk := range keys.Typed() {
		t.Remove(ownerKey(tk.Type, tk.Key))
	}
}

// OnInitialize rotates the session when the trigger says so.
func (m *Module) OnInitialize(ctx *registry.Context) inter.Weight {
	if m.trigger == nil || !m.trigger.ShouldEndSession(ctx) {
		return 0
	}
	m.Rotate(ctx)
	return RotateWeight
}

// Rotate starts the next session: the queued validators become active and
// a new queue is built from the members with registered keys.
func (m *Module) Rotate(ctx *registry.Context) {
	t := m.Table(ctx)
	index := m.CurrentIndex(ctx) + 1
	changed := t.Contains(changedKey)

	validators := m.Queued(ctx)
	queued := m.queue(ctx)
	t.PutBytes(indexKey, index.Bytes())
	t.PutRLP(validatorKey, validators)
	t.PutRLP(queuedKey, queued)
	if sameSet(validators, queued) {
		t.Remove(changedKey)
	} else {
		t.PutBytes(changedKey, []byte{1})
	}

	ctx.Log.WithField("session", index).Debug("New session")
	for _, h := range m.handlers {
		h.OnNewSession(ctx, index, changed, validators, queued)
	}
	ctx.Emit(m.Event("NewSession", uint32(index)))
}

func (m *Module) queue(ctx *registry.Context) drivertype.Authorities {
	var out drivertype.Authorities
	for _, a := range m.members.Members(ctx) {
		keys, ok := m.NextKeys(ctx, a.Account)
		if !ok {
			continue
		}
		out = append(out, drivertype.Authority{
			ID:      a.ID,
			Weight:  a.Weight,
			Account: a.Account,
			Keys:    keys,
			Status:  drivertype.OkStatus,
		})
	}
	return out
}

func sameSet(a, b drivertype.Authorities) bool {
	ra, _ := rlp.EncodeToBytes(a)
	rb, _ := rlp.EncodeToBytes(b)
	return bytes.Equal(ra, rb)
}

// BuildGenesis registers the genesis keys and starts session zero.
func (m *Module) BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error {
	validators := g.Authorities.Copy()
	for _, a := range validators {
		if err := m.setKeys(ctx, a.Account, a.Keys); err != nil {
			return err
		}
	}
	t := m.Table(ctx)
	t.PutBytes(indexKey, idx.Epoch(0).Bytes())
	t.PutRLP(validatorKey, validators)
	t.PutRLP(queuedKey, validators)
	for _, h := range m.handlers {
		h.OnGenesisSession(ctx, validators)
	}
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls: []registry.CallMetadata{
			{Index: CallSetKeys, Name: "set_keys", Args: []string{"keys"}},
			{Index: CallPurgeKeys, Name: "purge_keys"},
		},
		Storage: []string{"CurrentIndex", "Validators", "QueuedKeys", "QueuedChanged", "NextKeys", "KeyOwner"},
		Events:  []string{"NewSession", "ValidatorDisabled"},
		Errors:  []string{"NotValidator", "DuplicatedKey", "NoKeys", "BadArgs"},
	}
}
