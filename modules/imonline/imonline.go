// Package imonline lets validators signal liveness with one heartbeat per session.
package imonline

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/registry"
)

const (
	Index = 8
	Name  = "ImOnline"
)

const CallHeartbeat uint8 = 0

const HeartbeatWeight inter.Weight = 5000

// module error codes
const (
	codeInvalidKey uint8 = iota
	codeDuplicatedHeartbeat
	codeBadArgs
)

var (
	keysKey    = []byte("k")
	sessionKey = []byte("s")
)

const receivedPrefix = 'r'

// Heartbeat is what an authority signs to prove it is online.
type Heartbeat struct {
	BlockNumber    idx.Block
	Session        idx.Epoch
	AuthorityIndex uint32
}

// Payload is the digest signed by the authority's liveness key.
func (h Heartbeat) Payload() hash.Hash {
	raw, _ := rlp.EncodeToBytes(&h)
	return inter.Blake2b256(raw)
}

type HeartbeatArgs struct {
	Heartbeat Heartbeat
	Sig       []byte
}

// HeartbeatCall builds the unsigned heartbeat call.
func HeartbeatCall(hb Heartbeat, sig []byte) (inter.Call, error) {
	return inter.NewCall(Index, CallHeartbeat, &HeartbeatArgs{Heartbeat: hb, Sig: sig})
}

type Module struct {
	registry.Base
}

func New() *Module {
	return &Module{Base: registry.Base{Idx: Index, ModuleName: Name}}
}

func (m *Module) Capabilities() registry.Capabilities {
	return registry.Calls | registry.Storage | registry.ValidateUnsigned | registry.Offchain
}

func receivedKey(session idx.Epoch, i uint32) []byte {
	key := append([]byte{receivedPrefix}, session.Bytes()...)
	return append(key, bigendian.Uint32ToBytes(i)...)
}

// Keys are the liveness keys of the current validators, by authority index.
func (m *Module) Keys(ctx *registry.Context) []validatorpk.PubKey {
	var out []validatorpk.PubKey
	m.Table(ctx).GetRLP(keysKey, &out)
	return out
}

// Session is the session the keys belong to.
func (m *Module) Session(ctx *registry.Context) idx.Epoch {
	return idx.BytesToEpoch(m.Table(ctx).GetBytes(sessionKey))
}

// Received reports whether authority i sent a heartbeat in session.
func (m *Module) Received(ctx *registry.Context, session idx.Epoch, i uint32) bool {
	return m.Table(ctx).Contains(receivedKey(session, i))
}

func (m *Module) note(ctx *registry.Context, index idx.Epoch, validators drivertype.Authorities) {
	keys := make([]validatorpk.PubKey, 0, len(validators))
	for _, a := range validators {
		k, _ := a.Keys.Get(validatorpk.ImOnline)
		keys = append(keys, k.Copy())
	}
	t := m.Table(ctx)
	if index > 0 {
		t.Clear(append([]byte{receivedPrefix}, (index - 1).Bytes()...))
	}
	t.PutRLP(keysKey, keys)
	t.PutBytes(sessionKey, index.Bytes())
}

func (m *Module) OnGenesisSession(ctx *registry.Context, validators drivertype.Authorities) {
	m.note(ctx, 0, validators)
}

func (m *Module) OnNewSession(ctx *registry.Context, index idx.Epoch, _ bool, validators, _ drivertype.Authorities) {
	m.note(ctx, index, validators)
}

func (m *Module) Weigh(call inter.Call) (registry.DispatchInfo, error) {
	if call.Function == CallHeartbeat {
		return registry.DispatchInfo{Weight: HeartbeatWeight, Class: inter.Normal}, nil
	}
	return registry.DispatchInfo{}, registry.ErrUnknownCall
}

func (m *Module) Dispatch(ctx *registry.Context, origin registry.Origin, call inter.Call) error {
	if call.Function != CallHeartbeat {
		return registry.ErrUnknownCall
	}
	if err := origin.EnsureNone(); err != nil {
		return err
	}
	var args HeartbeatArgs
	if err := call.Decode(&args); err != nil {
		return m.Error(codeBadArgs, err.Error())
	}
	hb := args.Heartbeat
	if int(hb.AuthorityIndex) >= len(m.Keys(ctx)) || hb.Session != m.Session(ctx) {
		return m.Error(codeInvalidKey, "")
	}
	if m.Received(ctx, hb.Session, hb.AuthorityIndex) {
		return m.Error(codeDuplicatedHeartbeat, "")
	}
	m.Table(ctx).PutBytes(receivedKey(hb.Session, hb.AuthorityIndex), []byte{1})
	ctx.Emit(m.Event("HeartbeatReceived", hb.AuthorityIndex))
	return nil
}

// ValidateUnsigned admits one correctly signed heartbeat per authority and session.
func (m *Module) ValidateUnsigned(ctx *registry.Context, _ validity.Source, call inter.Call) (validity.ValidTransaction, error) {
	if call.Function != CallHeartbeat {
		return validity.ValidTransaction{}, validity.ErrCall
	}
	var args HeartbeatArgs
	if err := call.Decode(&args); err != nil {
		return validity.ValidTransaction{}, fmt.Errorf("%w: %v", validity.ErrCall, err)
	}
	hb := args.Heartbeat
	if hb.Session != m.Session(ctx) {
		return validity.ValidTransaction{}, validity.ErrStale
	}
	keys := m.Keys(ctx)
	if int(hb.AuthorityIndex) >= len(keys) {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	if m.Received(ctx, hb.Session, hb.AuthorityIndex) {
		return validity.ValidTransaction{}, validity.ErrStale
	}
	if !keys[hb.AuthorityIndex].Verify(hb.Payload().Bytes(), args.Sig) {
		return validity.ValidTransaction{}, validity.ErrBadProof
	}
	return validity.ValidTransaction{
		Priority:  ctx.Rules.Pool.UnsignedPriority,
		Provides:  []validity.Tag{append(append(validity.Tag{'h', 'b'}, hb.Session.Bytes()...), bigendian.Uint32ToBytes(hb.AuthorityIndex)...)},
		Longevity: ctx.Rules.Epochs.EpochDuration,
		Propagate: true,
	}, nil
}

// OffchainWorker sends a heartbeat for every local key of a current authority which has not sent one yet.
func (m *Module) OffchainWorker(ctx *registry.OffchainContext, header *inter.Header) error {
	if ctx.Keystore == nil || ctx.Pool == nil {
		return nil
	}
	session := m.Session(ctx.Context)
	keys := m.Keys(ctx.Context)
	for _, local := range ctx.Keystore.Keys(validatorpk.ImOnline) {
		for i, k := range keys {
			if !k.Equal(local) || m.Received(ctx.Context, session, uint32(i)) {
				continue
			}
			hb := Heartbeat{BlockNumber: header.Number, Session: session, AuthorityIndex: uint32(i)}
			sig, err := ctx.Keystore.Sign(validatorpk.ImOnline, local, hb.Payload().Bytes())
			if err != nil {
				return err
			}
			call, err := HeartbeatCall(hb, sig)
			if err != nil {
				return err
			}
			if err := ctx.Pool.SubmitExtrinsic(inter.NewUnsigned(call)); err != nil {
				return err
			}
			ctx.Log.WithField("session", session).WithField("index", i).Debug("Heartbeat submitted")
		}
	}
	return nil
}

func (m *Module) Metadata() registry.ModuleMetadata {
	return registry.ModuleMetadata{
		Calls: []registry.CallMetadata{
			{Index: CallHeartbeat, Name: "heartbeat", Args: []string{"heartbeat", "signature"}},
		},
		Storage: []string{"Keys", "CurrentSession", "ReceivedHeartbeats"},
		Events:  []string{"HeartbeatReceived"},
		Errors:  []string{"InvalidKey", "DuplicatedHeartbeat", "BadArgs"},
	}
}
