package registry

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/state"
)

// Registry is the fixed module table of a runtime. It is immutable after New.
type Registry struct {
	modules []Module
	byIndex map[uint8]Module
	byName  map[string]Module
}

// New builds the table from an explicit module list.
// Indices, names and storage prefixes must be unique, and every declared
// optional capability must be implemented.
func New(modules ...Module) (*Registry, error) {
	r := &Registry{
		modules: make([]Module, 0, len(modules)),
		byIndex: make(map[uint8]Module, len(modules)),
		byName:  make(map[string]Module, len(modules)),
	}
	prefixes := make(map[string]string, len(modules))
	for _, m := range modules {
		if prev, ok := r.byIndex[m.Index()]; ok {
			return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateIndex, m.Index(), prev.Name(), m.Name())
		}
		if _, ok := r.byName[m.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, m.Name())
		}
		prefix := string(state.ModulePrefix(m.Name()))
		if prev, ok := prefixes[prefix]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrPrefixCollision, prev, m.Name())
		}
		if err := checkCapabilities(m); err != nil {
			return nil, err
		}
		prefixes[prefix] = m.Name()
		r.byIndex[m.Index()] = m
		r.byName[m.Name()] = m
		r.modules = append(r.modules, m)
	}
	sort.Slice(r.modules, func(i, j int) bool {
		return r.modules[i].Index() < r.modules[j].Index()
	})
	return r, nil
}

// MustNew panics on an inconsistent module list.
func MustNew(modules ...Module) *Registry {
	r, err := New(modules...)
	if err != nil {
		panic(err)
	}
	return r
}

func checkCapabilities(m Module) error {
	caps := m.Capabilities()
	check := func(c Capabilities, ok bool) error {
		if caps.Has(c) && !ok {
			return fmt.Errorf("%w: %s declares %s", ErrCapability, m.Name(), c)
		}
		return nil
	}
	_, inherent := m.(InherentProvider)
	_, unsigned := m.(UnsignedValidator)
	_, offchain := m.(OffchainWorker)
	if err := check(Inherent, inherent); err != nil {
		return err
	}
	if err := check(ValidateUnsigned, unsigned); err != nil {
		return err
	}
	return check(Offchain, offchain)
}

func (r *Registry) Len() int {
	return len(r.modules)
}

func (r *Registry) Get(index uint8) (Module, bool) {
	m, ok := r.byIndex[index]
	return m, ok
}

func (r *Registry) ByName(name string) (Module, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Ascending returns the modules in index order.
func (r *Registry) Ascending() []Module {
	return append([]Module(nil), r.modules...)
}

// Descending returns the modules in reverse index order.
func (r *Registry) Descending() []Module {
	out := make([]Module, len(r.modules))
	for i, m := range r.modules {
		out[len(out)-1-i] = m
	}
	return out
}

func (r *Registry) route(call inter.Call) (Module, error) {
	m, ok := r.byIndex[call.Module]
	if !ok || !m.Capabilities().Has(Calls) {
		return nil, fmt.Errorf("%w: %s", ErrUnroutable, call)
	}
	return m, nil
}

// Weigh asks the owning module for the dispatch info of a call.
func (r *Registry) Weigh(call inter.Call) (DispatchInfo, error) {
	m, err := r.route(call)
	if err != nil {
		return DispatchInfo{}, err
	}
	return m.Weigh(call)
}

// Dispatch routes a call to its owning module.
// ErrUnroutable is returned as is; any module failure is a *DispatchError.
func (r *Registry) Dispatch(ctx *Context, origin Origin, call inter.Call) error {
	m, err := r.route(call)
	if err != nil {
		return err
	}
	if err := m.Dispatch(ctx, origin, call); err != nil {
		return AsDispatchError(err)
	}
	return nil
}

// InherentProviders returns the inherent providers in ascending order.
func (r *Registry) InherentProviders() []InherentProvider {
	var out []InherentProvider
	for _, m := range r.modules {
		if p, ok := m.(InherentProvider); ok && m.Capabilities().Has(Inherent) {
			out = append(out, p)
		}
	}
	return out
}

// IsInherent reports whether call is an inherent of its owning module.
func (r *Registry) IsInherent(call inter.Call) bool {
	m, ok := r.byIndex[call.Module]
	if !ok || !m.Capabilities().Has(Inherent) {
		return false
	}
	return m.(InherentProvider).IsInherent(call)
}

// UnsignedValidator returns the validator of unsigned calls to the owning module.
func (r *Registry) UnsignedValidator(call inter.Call) (UnsignedValidator, bool) {
	m, ok := r.byIndex[call.Module]
	if !ok || !m.Capabilities().Has(ValidateUnsigned) {
		return nil, false
	}
	return m.(UnsignedValidator), true
}

// OffchainWorkers returns the offchain workers in ascending order.
func (r *Registry) OffchainWorkers() []Module {
	var out []Module
	for _, m := range r.modules {
		if m.Capabilities().Has(Offchain) {
			out = append(out, m)
		}
	}
	return out
}

// HeaderCheckers returns the header checkers in ascending order.
func (r *Registry) HeaderCheckers() []HeaderChecker {
	var out []HeaderChecker
	for _, m := range r.modules {
		if c, ok := m.(HeaderChecker); ok {
			out = append(out, c)
		}
	}
	return out
}

// Metadata describes every module in index order.
func (r *Registry) Metadata() []ModuleMetadata {
	out := make([]ModuleMetadata, 0, len(r.modules))
	for _, m := range r.modules {
		md := m.Metadata()
		md.Index = m.Index()
		md.Name = m.Name()
		md.Prefix = state.ModulePrefix(m.Name())
		md.Capabilities = m.Capabilities().Names()
		out = append(out, md)
	}
	return out
}

// Owner returns the module owning key, if any.
func (r *Registry) Owner(key []byte) (Module, bool) {
	for _, m := range r.modules {
		if bytes.HasPrefix(key, state.ModulePrefix(m.Name())) {
			return m, true
		}
	}
	return nil, false
}
