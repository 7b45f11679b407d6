// Package api is the surface the host calls into: block import and building,
// transaction validation and the consensus queries of the runtime.
package api

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-runtime/executive"
	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/iblockproc"
	"github.com/rony4d/go-opera-runtime/inter/iep"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/modules/babe"
	"github.com/rony4d/go-opera-runtime/modules/balances"
	"github.com/rony4d/go-opera-runtime/modules/discovery"
	"github.com/rony4d/go-opera-runtime/modules/grandpa"
	"github.com/rony4d/go-opera-runtime/modules/historical"
	"github.com/rony4d/go-opera-runtime/modules/imonline"
	"github.com/rony4d/go-opera-runtime/modules/offences"
	"github.com/rony4d/go-opera-runtime/modules/payment"
	"github.com/rony4d/go-opera-runtime/modules/randomness"
	"github.com/rony4d/go-opera-runtime/modules/session"
	"github.com/rony4d/go-opera-runtime/modules/system"
	"github.com/rony4d/go-opera-runtime/modules/timestamp"
	"github.com/rony4d/go-opera-runtime/modules/validatorset"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
	"github.com/rony4d/go-opera-runtime/utils/logging"
	"github.com/rony4d/go-opera-runtime/validation"
)

var (
	ErrNoPool    = errors.New("no transaction pool to submit to")
	ErrNoKey     = errors.New("key is not held by a current authority")
	ErrWrongKind = errors.New("equivocation proof holds no evidence")
)

// Modules are the runtime modules, wired to each other.
type Modules struct {
	System       *system.Module
	Timestamp    *timestamp.Module
	Balances     *balances.Module
	Payment      *payment.Module
	Randomness   *randomness.Module
	Babe         *babe.Module
	Grandpa      *grandpa.Module
	ImOnline     *imonline.Module
	Offences     *offences.Module
	ValidatorSet *validatorset.Module
	Session      *session.Module
	Historical   *historical.Module
	Discovery    *discovery.Module
}

// List returns the modules in index order.
func (m Modules) List() []registry.Module {
	return []registry.Module{
		m.System,
		m.Timestamp,
		m.Balances,
		m.Payment,
		m.Randomness,
		m.Babe,
		m.Grandpa,
		m.ImOnline,
		m.Offences,
		m.ValidatorSet,
		m.Session,
		m.Historical,
		m.Discovery,
	}
}

// KeyInserter is implemented by keystores which accept generated keys.
type KeyInserter interface {
	Insert(kt validatorpk.KeyType, key *ecdsa.PrivateKey) validatorpk.PubKey
}

type Config struct {
	Rules    opera.Rules
	Log      logrus.FieldLogger
	Keystore registry.Keystore
	Pool     registry.TransactionPool
}

// Runtime is the state-transition function of one chain.
type Runtime struct {
	Modules
	registry  *registry.Registry
	validator *validation.Validator
	exec      *executive.Executive
	rules     opera.Rules
	log       logrus.FieldLogger
	keystore  registry.Keystore
	pool      registry.TransactionPool
}

// New assembles a runtime over backend.
func New(mods Modules, backend *state.Backend, cfg Config) (*Runtime, error) {
	reg, err := registry.New(mods.List()...)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	validator := validation.New(reg, mods.System, mods.Balances, mods.Payment)
	return &Runtime{
		Modules:   mods,
		registry:  reg,
		validator: validator,
		exec:      executive.New(reg, mods.System, validator, backend, executive.Config{Rules: cfg.Rules, Log: log}),
		rules:     cfg.Rules,
		log:       log,
		keystore:  cfg.Keystore,
		pool:      cfg.Pool,
	}, nil
}

// Version identifies the state-transition logic.
func (r *Runtime) Version() opera.RuntimeVersion {
	return r.rules.Version
}

// Metadata describes the modules.
func (r *Runtime) Metadata() []registry.ModuleMetadata {
	return r.registry.Metadata()
}

func (r *Runtime) Rules() opera.Rules {
	return r.rules
}

// Phase is the block execution state.
func (r *Runtime) Phase() executive.Phase {
	return r.exec.Phase()
}

// Head is the header of the last committed block.
func (r *Runtime) Head() inter.Header {
	return r.exec.Head()
}

// ApplyGenesis builds block zero.
func (r *Runtime) ApplyGenesis(g *genesis.Genesis) (*inter.Header, error) {
	return r.exec.ApplyGenesis(g)
}

// ExecuteBlock imports a complete block.
func (r *Runtime) ExecuteBlock(block *inter.Block) error {
	return r.exec.ExecuteBlock(block)
}

// InitializeBlock starts building a block.
func (r *Runtime) InitializeBlock(header *inter.Header) error {
	return r.exec.InitializeBlock(header)
}

// ApplyExtrinsic adds an extrinsic to the block being built.
func (r *Runtime) ApplyExtrinsic(xt *inter.Extrinsic) (executive.ApplyResult, error) {
	return r.exec.ApplyExtrinsic(xt)
}

// FinalizeBlock finishes the block being built.
func (r *Runtime) FinalizeBlock() (*inter.Header, error) {
	return r.exec.FinalizeBlock()
}

// NoteSeal adopts the sealed copy of the block just finalized as head.
func (r *Runtime) NoteSeal(sealed *inter.Header) error {
	return r.exec.NoteSeal(sealed)
}

// InherentExtrinsics creates the inherents of the block being built.
func (r *Runtime) InherentExtrinsics(data registry.InherentData) ([]*inter.Extrinsic, error) {
	return r.exec.InherentExtrinsics(data)
}

// CheckInherents returns a warning for every inherent of block disagreeing with data.
func (r *Runtime) CheckInherents(block *inter.Block, data registry.InherentData) []error {
	return r.exec.CheckInherents(block, data)
}

// RandomSeed is the randomness seed of the committed state.
func (r *Runtime) RandomSeed() (seed hash.Hash, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		seed = r.Randomness.Seed(ctx)
		return nil
	})
	return
}

// ValidateTransaction is the pool entry point. It is safe for concurrent use.
func (r *Runtime) ValidateTransaction(source validity.Source, xt *inter.Extrinsic) (validity.ValidTransaction, error) {
	return r.exec.ValidateTransaction(source, xt)
}

// OffchainWorker runs the offchain workers after header was imported.
// Their failures are logged and never reach the caller.
func (r *Runtime) OffchainWorker(header *inter.Header) {
	err := r.exec.View(func(ctx *registry.Context) error {
		octx := &registry.OffchainContext{Context: ctx, Keystore: r.keystore, Pool: r.pool}
		for _, m := range r.registry.OffchainWorkers() {
			if err := m.(registry.OffchainWorker).OffchainWorker(octx, header); err != nil {
				ctx.Log.WithField("module", m.Name()).WithError(err).Warn("Offchain worker failed")
			}
		}
		return nil
	})
	if err != nil {
		r.log.WithField("block", header.Number).WithError(err).Warn("Offchain workers aborted")
	}
}

// GenerateSessionKeys derives a key bundle from seed, stores the private keys
// in the keystore if it accepts them and returns the encoded public bundle.
func (r *Runtime) GenerateSessionKeys(seed []byte) ([]byte, error) {
	keys, priv, err := validatorpk.GenerateSessionKeys(seed)
	if err != nil {
		return nil, err
	}
	if ks, ok := r.keystore.(KeyInserter); ok {
		for _, kt := range validatorpk.SessionKeyTypes {
			ks.Insert(kt, priv[kt])
		}
	}
	return keys.Encode()
}

// DecodeSessionKeys splits an encoded bundle into typed keys.
func (r *Runtime) DecodeSessionKeys(raw []byte) ([]validatorpk.TypedKey, error) {
	keys, err := validatorpk.DecodeSessionKeys(raw)
	if err != nil {
		return nil, err
	}
	return keys.Typed(), nil
}

// EpochConfiguration is the block production configuration.
func (r *Runtime) EpochConfiguration() (cfg babe.Configuration, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		cfg = r.Babe.Configuration(ctx)
		return nil
	})
	return
}

func (r *Runtime) CurrentEpochStart() (slot uint64, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		slot = r.Babe.CurrentEpochStart(ctx)
		return nil
	})
	return
}

func (r *Runtime) CurrentEpoch() (es iblockproc.EpochState, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		es = r.Babe.CurrentEpoch(ctx)
		return nil
	})
	return
}

func (r *Runtime) NextEpoch() (es iblockproc.EpochState, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		es = r.Babe.NextEpoch(ctx)
		return nil
	})
	return
}

// GrandpaAuthorities is the current finality authority set.
func (r *Runtime) GrandpaAuthorities() (out []grandpa.Authority, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		out = r.Grandpa.Authorities(ctx)
		return nil
	})
	return
}

// AuthorityDiscoveryAuthorities are the discovery keys of current and next authorities.
func (r *Runtime) AuthorityDiscoveryAuthorities() (out []validatorpk.PubKey, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		out = r.Discovery.Authorities(ctx)
		return nil
	})
	return
}

// GenerateKeyOwnershipProof proves that pk is the role kt key of a current authority.
func (r *Runtime) GenerateKeyOwnershipProof(kt validatorpk.KeyType, pk validatorpk.PubKey) (raw []byte, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		proof, ok := r.Historical.Prove(ctx, kt, pk)
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrNoKey, kt, pk)
		}
		raw, err = proof.Encode()
		return err
	})
	return
}

// SubmitEquivocationReport submits an unsigned report of the offence proven by proof.
// Reporting an offence which is already punished succeeds without doing anything.
func (r *Runtime) SubmitEquivocationReport(rawProof, rawOwner []byte) error {
	proof, err := inter.DecodeEquivocationProof(rawProof)
	if err != nil {
		return err
	}
	owner, err := iep.DecodeKeyOwnershipProof(rawOwner)
	if err != nil {
		return err
	}
	var call inter.Call
	switch {
	case proof.Slot != nil:
		call, err = babe.ReportEquivocationCall(proof, owner)
	case proof.Vote != nil:
		call, err = grandpa.ReportEquivocationCall(proof, owner)
	default:
		err = ErrWrongKind
	}
	if err != nil {
		return err
	}

	xt := inter.NewUnsigned(call)
	if _, err := r.ValidateTransaction(validity.Local, xt); err != nil {
		if errors.Is(err, validity.ErrStale) {
			r.log.WithField("offender", proof.Offender().String()).Debug("Offence already reported")
			return nil
		}
		return err
	}
	if r.pool == nil {
		return ErrNoPool
	}
	return r.pool.SubmitExtrinsic(xt)
}

// AccountNonce is the next nonce of addr.
func (r *Runtime) AccountNonce(addr common.Address) (nonce uint64, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		nonce = r.System.AccountNonce(ctx, addr)
		return nil
	})
	return
}

// Account is the account of addr.
func (r *Runtime) Account(addr common.Address) (info system.AccountInfo, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		info = r.System.Account(ctx, addr)
		return nil
	})
	return
}

// Events are the events deposited by the head block.
func (r *Runtime) Events() (out []system.EventRecord, err error) {
	err = r.exec.Committed(func(ctx *registry.Context) error {
		out = r.System.Events(ctx)
		return nil
	})
	return
}

// DispatchInfo is the dispatch info of an extrinsic with the fee it would pay without tip.
type DispatchInfo struct {
	Weight     inter.Weight
	Class      inter.DispatchClass
	PartialFee *big.Int
}

func (r *Runtime) QueryInfo(xt *inter.Extrinsic) (DispatchInfo, error) {
	info, details, err := r.QueryFeeDetails(xt)
	if err != nil {
		return DispatchInfo{}, err
	}
	return DispatchInfo{Weight: info.Weight, Class: info.Class, PartialFee: details.InclusionFee()}, nil
}

func (r *Runtime) QueryFeeDetails(xt *inter.Extrinsic) (info registry.DispatchInfo, details validation.FeeDetails, err error) {
	err = r.exec.View(func(ctx *registry.Context) error {
		info, details, err = r.validator.QueryFeeDetails(ctx, xt)
		return err
	})
	return
}
