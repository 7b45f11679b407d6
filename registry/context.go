package registry

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/opera"
	"github.com/rony4d/go-opera-runtime/state"
	"github.com/rony4d/go-opera-runtime/utils/logging"
)

// Event is a record deposited by a module during block execution.
type Event struct {
	Module uint8
	Name   string
	Data   []byte
}

// NewEvent RLP-encodes data into an event.
func NewEvent(module uint8, name string, data interface{}) Event {
	ev := Event{Module: module, Name: name}
	if data != nil {
		raw, err := rlp.EncodeToBytes(data)
		if err != nil {
			panic("can't encode event: " + err.Error())
		}
		ev.Data = raw
	}
	return ev
}

// EventSink stores deposited events.
type EventSink interface {
	DepositEvent(ctx *Context, ev Event)
}

// Context is what a module sees when it is invoked.
type Context struct {
	State *state.Overlay
	// Header is the header of the block being built or validated against.
	Header *inter.Header
	Rules  *opera.Rules
	Log    logrus.FieldLogger
	Events EventSink
}

// NewContext fills in a discarding logger if log is nil.
func NewContext(st *state.Overlay, header *inter.Header, rules *opera.Rules, log logrus.FieldLogger, events EventSink) *Context {
	if log == nil {
		log = logging.Discard()
	}
	return &Context{State: st, Header: header, Rules: rules, Log: log, Events: events}
}

// WithState returns a copy of the context bound to another overlay.
func (c *Context) WithState(st *state.Overlay) *Context {
	cp := *c
	cp.State = st
	return &cp
}

// WithLog returns a copy of the context with extra log fields.
func (c *Context) WithLog(fields logrus.Fields) *Context {
	cp := *c
	cp.Log = c.Log.WithFields(fields)
	return &cp
}

// Table returns the key space of the module with the given name.
func (c *Context) Table(module string) state.Table {
	return c.State.Table(state.ModulePrefix(module))
}

// Number of the current block.
func (c *Context) Number() idx.Block {
	if c.Header == nil {
		return 0
	}
	return c.Header.Number
}

// Emit deposits an event. Events are dropped if the context has no sink.
func (c *Context) Emit(ev Event) {
	if c.Events != nil {
		c.Events.DepositEvent(c, ev)
	}
}
