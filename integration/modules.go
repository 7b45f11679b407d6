// Package integration wires the runtime modules together and assembles a
// ready to use runtime for a named network preset.
package integration

import (
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-runtime/api"
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
	"github.com/rony4d/go-opera-runtime/registry"
	"github.com/rony4d/go-opera-runtime/state"
)

// NewModules builds a fresh set of modules with their cross references.
// Session handlers are notified in the order Babe, Grandpa, Historical,
// AuthorityDiscovery, ImOnline.
func NewModules() api.Modules {
	sys := system.New()
	vs := validatorset.New()
	bal := balances.New(sys)
	hist := historical.New()
	sess := session.New(vs)
	off := offences.New(bal, sess, vs)
	b := babe.New(sys, hist, off)
	g := grandpa.New(sys, hist, off)
	disc := discovery.New()
	imon := imonline.New()
	sess.Attach(b, b, g, hist, disc, imon)

	return api.Modules{
		System:       sys,
		Timestamp:    timestamp.New(),
		Balances:     bal,
		Payment:      payment.New(sys),
		Randomness:   randomness.New(),
		Babe:         b,
		Grandpa:      g,
		ImOnline:     imon,
		Offences:     off,
		ValidatorSet: vs,
		Session:      sess,
		Historical:   hist,
		Discovery:    disc,
	}
}

// Host is what the node provides to the runtime.
type Host struct {
	Log      logrus.FieldLogger
	Keystore registry.Keystore
	Pool     registry.TransactionPool
}

// MakeRuntime assembles a runtime executing rules over backend.
func MakeRuntime(rules opera.Rules, backend *state.Backend, host Host) (*api.Runtime, error) {
	return api.New(NewModules(), backend, api.Config{
		Rules:    rules,
		Log:      host.Log,
		Keystore: host.Keystore,
		Pool:     host.Pool,
	})
}
