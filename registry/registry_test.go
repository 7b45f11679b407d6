package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validity"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/state"
)

type testModule struct {
	Base
	caps Capabilities
	log  *[]string
}

func newTestModule(index uint8, name string, log *[]string) *testModule {
	return &testModule{Base: Base{Idx: index, ModuleName: name}, caps: Calls | Storage, log: log}
}

func (m *testModule) Capabilities() Capabilities {
	return m.caps
}

func (m *testModule) Weigh(call inter.Call) (DispatchInfo, error) {
	switch call.Function {
	case 0, 1:
		return DispatchInfo{Weight: 10, PaysFee: true}, nil
	}
	return DispatchInfo{}, ErrUnknownCall
}

func (m *testModule) Dispatch(ctx *Context, origin Origin, call inter.Call) error {
	if _, err := origin.EnsureSigned(); err != nil {
		return err
	}
	m.Table(ctx).PutBytes([]byte("called"), []byte{call.Function + 1})
	ctx.Emit(m.Event("Called", nil))
	switch call.Function {
	case 0:
		return nil
	case 1:
		return errors.New("boom")
	}
	return m.Error(7, "unknown")
}

func (m *testModule) OnInitialize(*Context) inter.Weight {
	*m.log = append(*m.log, "init:"+m.Name())
	return 1
}

func (m *testModule) OnFinalize(*Context) {
	*m.log = append(*m.log, "final:"+m.Name())
}

func (m *testModule) Metadata() ModuleMetadata {
	return ModuleMetadata{Calls: []CallMetadata{{Index: 0, Name: "ok"}, {Index: 1, Name: "fail"}}}
}

type unsignedModule struct {
	*testModule
}

func (m unsignedModule) ValidateUnsigned(*Context, validity.Source, inter.Call) (validity.ValidTransaction, error) {
	return validity.Default(), nil
}

type eventLog []Event

func (l *eventLog) DepositEvent(_ *Context, ev Event) {
	*l = append(*l, ev)
}

func TestNewRejectsInconsistentTables(t *testing.T) {
	var log []string
	tests := []struct {
		name    string
		modules []Module
		err     error
	}{
		{"duplicate index", []Module{newTestModule(1, "A", &log), newTestModule(1, "B", &log)}, ErrDuplicateIndex},
		{"duplicate name", []Module{newTestModule(1, "A", &log), newTestModule(2, "A", &log)}, ErrDuplicateName},
		{"missing capability", []Module{func() Module {
			m := newTestModule(1, "A", &log)
			m.caps |= Inherent
			return m
		}()}, ErrCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.modules...)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHookOrder(t *testing.T) {
	require := require.New(t)

	var log []string
	r, err := New(newTestModule(5, "E", &log), newTestModule(0, "A", &log), newTestModule(2, "C", &log))
	require.NoError(err)
	require.Equal(3, r.Len())

	ctx := NewContext(state.NewMemory().Begin(), &inter.Header{}, nil, nil, nil)
	for _, m := range r.Ascending() {
		m.OnInitialize(ctx)
	}
	for _, m := range r.Descending() {
		m.OnFinalize(ctx)
	}
	require.Equal([]string{"init:A", "init:C", "init:E", "final:E", "final:C", "final:A"}, log)
}

func TestDispatch(t *testing.T) {
	require := require.New(t)

	var log []string
	var events eventLog
	rules := opera.FakeNetRules()
	r := MustNew(newTestModule(0, "A", &log), newTestModule(3, "B", &log))
	ctx := NewContext(state.NewMemory().Begin(), &inter.Header{Number: 1}, &rules, nil, &events)

	info, err := r.Weigh(inter.MustCall(3, 0, nil))
	require.NoError(err)
	require.Equal(inter.Weight(10), info.Weight)

	_, err = r.Weigh(inter.MustCall(3, 9, nil))
	require.ErrorIs(err, ErrUnknownCall)

	_, err = r.Weigh(inter.MustCall(4, 0, nil))
	require.ErrorIs(err, ErrUnroutable)
	require.ErrorIs(r.Dispatch(ctx, Root(), inter.MustCall(4, 0, nil)), ErrUnroutable)

	require.NoError(r.Dispatch(ctx, Signed([20]byte{1}), inter.MustCall(3, 0, nil)))
	require.Len(events, 1)
	require.Equal(uint8(3), events[0].Module)
	require.Equal([]byte{1}, ctx.Table("B").GetBytes([]byte("called")))
	require.Nil(ctx.Table("A").GetBytes([]byte("called")))

	err = r.Dispatch(ctx, None(), inter.MustCall(3, 0, nil))
	require.ErrorIs(err, ErrBadOrigin)

	err = r.Dispatch(ctx, Signed([20]byte{1}), inter.MustCall(3, 1, nil))
	var de *DispatchError
	require.True(errors.As(err, &de))
	require.Equal(Other, de.Kind)
	require.Equal("dispatch error: boom", err.Error())

	err = r.Dispatch(ctx, Signed([20]byte{1}), inter.MustCall(3, 2, nil))
	require.ErrorIs(err, NewModuleError(3, 7, ""))
	require.False(errors.Is(err, NewModuleError(3, 8, "")))
}

func TestCapabilityLookups(t *testing.T) {
	require := require.New(t)

	var log []string
	u := unsignedModule{newTestModule(6, "U", &log)}
	u.caps |= ValidateUnsigned
	r := MustNew(newTestModule(0, "A", &log), u)

	_, ok := r.UnsignedValidator(inter.MustCall(6, 0, nil))
	require.True(ok)
	_, ok = r.UnsignedValidator(inter.MustCall(0, 0, nil))
	require.False(ok)
	require.False(r.IsInherent(inter.MustCall(0, 0, nil)))
	require.Empty(r.InherentProviders())
	require.Empty(r.OffchainWorkers())

	md := r.Metadata()
	require.Len(md, 2)
	require.Equal("U", md[1].Name)
	require.Equal([]string{"calls", "storage", "validate-unsigned"}, md[1].Capabilities)
	require.Len(md[1].Prefix, state.PrefixSize)

	owner, ok := r.Owner(append(state.ModulePrefix("U"), 1, 2))
	require.True(ok)
	require.Equal("U", owner.Name())
}

func TestOrigins(t *testing.T) {
	require := require.New(t)

	addr, err := Signed([20]byte{9}).EnsureSigned()
	require.NoError(err)
	require.Equal(byte(9), addr[0])
	require.ErrorIs(Root().EnsureNone(), ErrBadOrigin)
	require.NoError(Root().EnsureRoot())
	require.NoError(None().EnsureNone())
	require.Equal("root", Root().String())
}
